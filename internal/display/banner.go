package display

import (
	_ "embed"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

//go:embed banner.txt
var bannerArt string

// RenderBanner centres the banner art for the current terminal.
func RenderBanner() string {
	return centreBlock(bannerArt, terminalColumns())
}

// centreBlock pads every line of art by the same amount so the block
// stays aligned. Art wider than cols is left unpadded.
func centreBlock(art string, cols int) string {
	art = strings.TrimRight(art, "\n")
	if art == "" {
		return ""
	}
	lines := strings.Split(art, "\n")
	pad := ""
	if w := lipgloss.Width(art); cols > w {
		pad = strings.Repeat(" ", (cols-w)/2)
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(pad)
		b.WriteString(BannerStyle.Render(l))
		b.WriteByte('\n')
	}
	return b.String()
}

func terminalColumns() int {
	if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
		return w
	}
	return 80
}
