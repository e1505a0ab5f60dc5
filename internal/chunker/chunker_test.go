package chunker

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	if got := Split("  \n\n ", DefaultOptions()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSplit_ShortStaysWhole(t *testing.T) {
	text := "ubiquitous: present everywhere.\nExample: Phones are ubiquitous."
	got := Split(text, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(got))
	}
	if got[0].Text != text || got[0].FirstLine != 1 || got[0].LastLine != 2 {
		t.Errorf("unexpected piece %+v", got[0])
	}
}

func TestSplit_Headings(t *testing.T) {
	body := strings.Repeat("A word that means something. ", 12)
	text := "# Prefixes\n" + body + "\n# Roots\n" + body + "\n# Suffixes\n" + body

	got := Split(text, DefaultOptions())
	if len(got) != 3 {
		t.Fatalf("expected 3 pieces, got %d", len(got))
	}
	for i, want := range []string{"# Prefixes", "# Roots", "# Suffixes"} {
		if !strings.HasPrefix(got[i].Text, want) {
			t.Errorf("piece %d should start with %q, got %q", i, want, got[i].Text[:20])
		}
	}
	if got[1].FirstLine != 3 || got[1].LastLine != 4 {
		t.Errorf("expected lines 3-4 for second piece, got %d-%d", got[1].FirstLine, got[1].LastLine)
	}
}

func TestSplit_MergesSmallParagraphs(t *testing.T) {
	small := "bene: good"
	big := strings.Repeat("x", 590)
	text := small + "\n\n" + small + "\n\n" + big

	got := Split(text, DefaultOptions())
	if len(got) != 2 {
		t.Fatalf("expected 2 pieces, got %d", len(got))
	}
	if got[0].Text != small+"\n\n"+small {
		t.Errorf("expected merged paragraphs, got %q", got[0].Text)
	}
	if got[1].Text != big {
		t.Errorf("expected long paragraph alone")
	}
}

func TestSplit_BreaksOversizeSection(t *testing.T) {
	line := "This is a line of vocabulary notes about fifty chars."
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = line
	}
	opts := Options{Target: 200, Max: 300}

	got := Split(strings.Join(lines, "\n"), opts)
	if len(got) < 4 {
		t.Fatalf("expected at least 4 pieces, got %d", len(got))
	}
	next := 1
	for _, p := range got {
		if len(p.Text) > opts.Max {
			t.Errorf("piece exceeds max: %d", len(p.Text))
		}
		if p.FirstLine != next {
			t.Errorf("expected piece to start at line %d, got %d", next, p.FirstLine)
		}
		next = p.LastLine + 1
	}
	if next != 21 {
		t.Errorf("pieces should cover 20 lines, ended at %d", next-1)
	}
}

func TestSplit_CustomMeasure(t *testing.T) {
	words := func(s string) int { return len(strings.Fields(s)) }
	para := strings.Repeat("word ", 30)
	text := para + "\n\n" + para + "\n\n" + para

	got := Split(text, Options{Target: 40, Max: 50, Measure: words})
	if len(got) != 3 {
		t.Fatalf("expected 3 pieces by word count, got %d", len(got))
	}
	for _, p := range got {
		if n := words(p.Text); n != 30 {
			t.Errorf("expected 30 words, got %d", n)
		}
	}
}

func TestOptions_Normalized(t *testing.T) {
	o := Options{Target: 500, Max: 100}.normalized()
	if o.Max != 500 {
		t.Errorf("max below target should be raised, got %d", o.Max)
	}
	if o.Measure("abc") != 3 {
		t.Errorf("default measure should be byte length")
	}
}
