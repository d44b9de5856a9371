package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// VariantTheme forces the light or dark variant requested by a split file.
type VariantTheme struct {
	fyne.Theme
	variant fyne.ThemeVariant
}

// NewVariantTheme returns a theme for the variant name ("light" or "dark").
// Any other name follows the system preference.
func NewVariantTheme(name string) fyne.Theme {
	switch name {
	case "light":
		return &VariantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantLight}
	case "dark":
		return &VariantTheme{Theme: theme.DefaultTheme(), variant: theme.VariantDark}
	default:
		return theme.DefaultTheme()
	}
}

// Color returns the color for the forced variant.
func (t *VariantTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	return t.Theme.Color(name, t.variant)
}
