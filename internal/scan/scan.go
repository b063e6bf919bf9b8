// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scan implements the line state machine that finds snippet
// regions in a document and splices their evaluated output in place.
package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Marker delimits an inline fragment on a single line. Fence opens and
// closes a block; both fence lines are removed from the output. There
// is no escape: the first marker after an opening marker always closes
// the fragment, so a literal marker cannot appear in prose.
const (
	Marker = '`'
	Fence  = "```"
)

// ErrUnclosedBlock reports a block fence that was never closed before
// the input ended. The pass output is not complete.
var ErrUnclosedBlock = errors.New("unclosed block snippet")

// Evaluator executes snippet code against the shared document context.
type Evaluator interface {
	// EvalInline returns the replacement text for an inline fragment.
	EvalInline(src string) (string, error)
	// EvalBlock returns the captured output of a block body.
	EvalBlock(body string) (string, error)
}

type state int

const (
	statePlain state = iota
	stateBlock
)

// Pass scans one document line by line, handing snippet regions to the
// evaluator and writing transformed output incrementally. Each line is
// processed to completion, including any evaluation it triggers, before
// the next is read; later snippets may depend on mutations made by
// earlier ones.
type Pass struct {
	ev Evaluator

	state     state
	body      strings.Builder // accumulated block body
	indent    int             // leading whitespace width of the open fence line
	line      int             // current input line, 1-based
	fenceLine int             // line the open fence appeared on
}

// New creates a Pass backed by the given evaluator.
func New(ev Evaluator) *Pass {
	return &Pass{ev: ev}
}

// Run processes the whole document from r to w. The document ends
// successfully only in plain state; EOF inside a block is
// ErrUnclosedBlock.
func (p *Pass) Run(r io.Reader, w io.Writer) error {
	p.state = statePlain
	p.body.Reset()
	p.indent = 0
	p.line = 0

	br := bufio.NewReader(r)
	for {
		l, err := br.ReadString('\n')
		if l != "" {
			p.line++
			if serr := p.step(l, w); serr != nil {
				return serr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if p.state == stateBlock {
		return fmt.Errorf("line %d: %w", p.fenceLine, ErrUnclosedBlock)
	}
	return nil
}

// step advances the state machine by one line. Lines keep their
// trailing newline so splices and verbatim emission preserve the
// document's own line endings.
func (p *Pass) step(l string, w io.Writer) error {
	if p.state == stateBlock {
		return p.blockLine(l, w)
	}
	switch {
	case strings.HasPrefix(strings.TrimSpace(l), Fence):
		p.state = stateBlock
		p.indent = leadingWidth(l)
		p.fenceLine = p.line
		p.body.Reset()
		return nil
	case strings.ContainsRune(l, Marker):
		return p.inlineLine(l, w)
	default:
		_, err := io.WriteString(w, l)
		return err
	}
}

// inlineLine splices every paired-marker fragment on the line, left to
// right. An unpaired trailing marker stays literal. A line that is
// nothing but whitespace after substitution came from side-effect-only
// fragments and is suppressed entirely.
func (p *Pass) inlineLine(l string, w io.Writer) error {
	var out strings.Builder
	rest := l
	for {
		i := strings.IndexByte(rest, Marker)
		if i < 0 {
			break
		}
		j := strings.IndexByte(rest[i+1:], Marker)
		if j < 0 {
			break
		}
		res, err := p.ev.EvalInline(rest[i+1 : i+1+j])
		if err != nil {
			return fmt.Errorf("line %d: inline snippet: %w", p.line, err)
		}
		out.WriteString(rest[:i])
		out.WriteString(res)
		rest = rest[i+1+j+1:]
	}
	out.WriteString(rest)
	if strings.TrimSpace(out.String()) == "" {
		return nil
	}
	_, err := io.WriteString(w, out.String())
	return err
}

// blockLine either closes the block and emits its re-indented output,
// or accumulates one more body line with the fence indentation removed.
func (p *Pass) blockLine(l string, w io.Writer) error {
	if strings.HasPrefix(strings.TrimSpace(l), Fence) {
		res, err := p.ev.EvalBlock(p.body.String())
		if err != nil {
			return fmt.Errorf("line %d: block snippet: %w", p.fenceLine, err)
		}
		indent := p.indent
		p.body.Reset()
		p.indent = 0
		p.state = statePlain
		_, werr := io.WriteString(w, reindent(res, indent))
		return werr
	}
	// Clamped strip: a line shorter than the fence indentation
	// contributes nothing, newline included.
	if len(l) > p.indent {
		p.body.WriteString(l[p.indent:])
	}
	return nil
}
