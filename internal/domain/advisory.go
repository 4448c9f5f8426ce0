package domain

import "strings"

// Paragraph is one block of advisory text, kept as its individual lines.
type Paragraph struct {
	Lines []string
}

// Advisory is a generated safety summary ready for display.
type Advisory struct {
	Paragraphs []Paragraph
}

// FormatAdvisory turns raw generated text into display paragraphs. Emphasis
// asterisks become bullet glyphs and blank lines separate paragraphs.
func FormatAdvisory(text string) Advisory {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "*", "•")

	var adv Advisory
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		adv.Paragraphs = append(adv.Paragraphs, Paragraph{Lines: strings.Split(block, "\n")})
	}
	return adv
}

// Empty reports whether the advisory has nothing to show.
func (a Advisory) Empty() bool {
	return len(a.Paragraphs) == 0
}
