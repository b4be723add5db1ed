package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewThemeWithName(t *testing.T) {
	assert.Equal(t, "kanagawa", NewThemeWithName("Kanagawa Dragon").Name)
	assert.Equal(t, "terminal", NewThemeWithName("ansi").Name)
	assert.Equal(t, "kanagawa", NewThemeWithName("no-such-theme").Name)
}

func TestIconsNamed(t *testing.T) {
	assert.Equal(t, "[ok]", IconsNamed("ascii").Success)
	assert.Equal(t, "✓", IconsNamed("").Success)
	assert.Equal(t, nerdIcons, IconsNamed("nerd"))
}

func TestRenderStatusKeepsText(t *testing.T) {
	for _, status := range []string{"success", "error", "warning", "info", "other"} {
		assert.Contains(t, RenderStatus(status, "converted"), "converted")
	}
}
