package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/uniseg"
)

// Gradient renders bold text with a horizontal color gradient between the
// theme's primary and secondary colors.
func (t *Theme) Gradient(text string) string {
	return ApplyGradient(text, t.Primary, t.Secondary)
}

// ApplyGradient renders bold text blending from one color to another, one
// grapheme cluster at a time.
func ApplyGradient(text string, from, to lipgloss.Color) string {
	var clusters []string
	gr := uniseg.NewGraphemes(text)
	for gr.Next() {
		clusters = append(clusters, gr.Str())
	}

	switch len(clusters) {
	case 0:
		return ""
	case 1:
		return lipgloss.NewStyle().Foreground(from).Bold(true).Render(text)
	}

	c1 := toColorful(from)
	c2 := toColorful(to)
	last := float64(len(clusters) - 1)

	var b strings.Builder
	for i, cluster := range clusters {
		// Blend in HCL for perceptually even steps.
		hex := c1.BlendHcl(c2, float64(i)/last).Clamped().Hex()
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true).Render(cluster))
	}
	return b.String()
}

// toColorful parses a #rrggbb color. ANSI color numbers become neutral gray.
func toColorful(c lipgloss.Color) colorful.Color {
	if col, err := colorful.Hex(string(c)); err == nil {
		return col
	}
	return colorful.Color{R: 0.5, G: 0.5, B: 0.5}
}
