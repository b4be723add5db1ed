package theme

import (
	"os"
	"strings"
	"sync"
)

// IconSet is the group of glyphs used to prefix status lines.
type IconSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Debug   string
	Running string
	Bullet  string
	Arrow   string
}

// Nerd Font glyphs.
var nerdIcons = IconSet{
	Success: "󰄬", // md-check (U+F012C)
	Error:   "", // cod-error (U+EA87)
	Warning: "", // fa-warning (U+F071)
	Info:    "󰋼", // md-information (U+F02FC)
	Debug:   "", // cod-debug (U+EAD8)
	Running: "", // fa-refresh (U+F021)
	Bullet:  "", // oct-dot_fill (U+F444)
	Arrow:   "󰁔", // md-arrow_right (U+F0054)
}

// Plain unicode glyphs, the default.
var unicodeIcons = IconSet{
	Success: "✓",
	Error:   "✗",
	Warning: "⚠",
	Info:    "ℹ",
	Debug:   "·",
	Running: "◐",
	Bullet:  "•",
	Arrow:   "→",
}

// Seven-bit fallback for terminals and log collectors without unicode.
var asciiIcons = IconSet{
	Success: "[ok]",
	Error:   "[x]",
	Warning: "[!]",
	Info:    "[i]",
	Debug:   "[.]",
	Running: "[~]",
	Bullet:  "*",
	Arrow:   "->",
}

var (
	iconsOnce sync.Once
	icons     IconSet
)

// Icons returns the icon set chosen by TRACEPORT_ICONS or the `tui.icons`
// configuration key ("nerd", "unicode" or "ascii").
func Icons() IconSet {
	iconsOnce.Do(func() {
		name := os.Getenv("TRACEPORT_ICONS")
		if name == "" {
			name = loadSettings().Icons
		}
		icons = IconsNamed(name)
	})
	return icons
}

// IconsNamed returns the named icon set, defaulting to unicode.
func IconsNamed(name string) IconSet {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "nerd", "nerdfont":
		return nerdIcons
	case "ascii":
		return asciiIcons
	default:
		return unicodeIcons
	}
}
