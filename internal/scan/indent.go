// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package scan

import "strings"

// leadingWidth counts the whitespace columns before the first non-blank
// character of a line.
func leadingWidth(l string) int {
	return len(l) - len(strings.TrimLeft(l, " \t"))
}

// reindent prefixes every non-blank line of captured block output with
// exactly width spaces, so generated bodies line up with the fence no
// matter how the snippet formatted its own output. Blank lines are
// dropped rather than emitted.
func reindent(s string, width int) string {
	var b strings.Builder
	pad := strings.Repeat(" ", width)
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(pad)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
