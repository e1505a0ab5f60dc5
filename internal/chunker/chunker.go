// Package chunker splits study material into pieces small enough to embed
// and store as long-term memory.
package chunker

import (
	"strings"
)

// Size defaults, in units of Options.Measure.
const (
	DefaultTarget = 400
	DefaultMax    = 600
)

// Measure reports the size of a piece of text. Byte length is used when
// none is configured; callers seeding memory pass a token counter.
type Measure func(string) int

type Options struct {
	Target  int
	Max     int
	Measure Measure
}

func DefaultOptions() Options {
	return Options{Target: DefaultTarget, Max: DefaultMax}
}

func (o Options) normalized() Options {
	if o.Target <= 0 {
		o.Target = DefaultTarget
	}
	if o.Max <= 0 {
		o.Max = DefaultMax
	}
	if o.Max < o.Target {
		o.Max = o.Target
	}
	if o.Measure == nil {
		o.Measure = func(s string) int { return len(s) }
	}
	return o
}

// Piece is one chunk plus the 1-based line span it came from.
type Piece struct {
	Text      string
	FirstLine int
	LastLine  int
}

// Split cuts text on markdown headings and blank-line paragraph breaks,
// packs neighbouring sections up to Target and breaks anything over Max on
// line boundaries. Text that already fits in Max comes back whole.
func Split(text string, opts Options) []Piece {
	opts = opts.normalized()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if opts.Measure(text) <= opts.Max {
		return []Piece{{Text: text, FirstLine: 1, LastLine: strings.Count(text, "\n") + 1}}
	}
	return pack(sections(text), opts)
}

// sections breaks text before every heading and after every blank line.
func sections(text string) []Piece {
	var (
		out   []Piece
		buf   []string
		first = 1
	)
	emit := func(last int) {
		if s := strings.TrimSpace(strings.Join(buf, "\n")); s != "" {
			out = append(out, Piece{Text: s, FirstLine: first, LastLine: last})
		}
		buf = nil
		first = last + 1
	}

	for i, line := range strings.Split(text, "\n") {
		n := i + 1
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#") && len(buf) > 0:
			emit(n - 1)
		case trimmed == "" && len(buf) > 0:
			buf = append(buf, line)
			emit(n)
			continue
		}
		if trimmed == "" && len(buf) == 0 {
			first = n + 1
			continue
		}
		buf = append(buf, line)
	}
	emit(first + len(buf) - 1)
	return out
}

func pack(secs []Piece, opts Options) []Piece {
	var (
		out []Piece
		cur Piece
	)
	flush := func() {
		if cur.Text == "" {
			return
		}
		if opts.Measure(cur.Text) > opts.Max {
			out = append(out, breakLines(cur, opts)...)
		} else {
			out = append(out, cur)
		}
		cur = Piece{}
	}

	for _, s := range secs {
		if cur.Text == "" {
			cur = s
			continue
		}
		joined := cur.Text + "\n\n" + s.Text
		if opts.Measure(joined) <= opts.Target {
			cur.Text = joined
			cur.LastLine = s.LastLine
			continue
		}
		flush()
		cur = s
	}
	flush()
	return out
}

// breakLines splits an oversize section into line runs of about Target.
// A single line larger than Max is kept intact.
func breakLines(p Piece, opts Options) []Piece {
	lines := strings.Split(p.Text, "\n")
	var (
		out   []Piece
		run   []string
		first = p.FirstLine
	)
	emit := func(last int) {
		if s := strings.TrimSpace(strings.Join(run, "\n")); s != "" {
			out = append(out, Piece{Text: s, FirstLine: first, LastLine: last})
		}
		run = nil
	}

	for i, line := range lines {
		n := p.FirstLine + i
		if len(run) > 0 && opts.Measure(strings.Join(append(run, line), "\n")) > opts.Target {
			emit(n - 1)
			first = n
		}
		run = append(run, line)
	}
	emit(p.FirstLine + len(lines) - 1)
	return out
}
