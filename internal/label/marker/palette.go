package marker

import (
	"labelforge/internal/catalog/models"
)

// Colors is a foreground/background pair.
type Colors struct {
	Foreground string
	Background string
}

// Palette maps lineages to label colours.
type Palette map[models.Lineage]Colors

// Fallback is used for text that is not a recognised lineage.
var Fallback = Colors{Foreground: "#FFFFFF", Background: "#FFFFFF"}

// DefaultPalette returns the standard lineage colours.
func DefaultPalette() Palette {
	return Palette{
		models.LineageSativa:        {Foreground: "#FFFFFF", Background: "#ED4123"},
		models.LineageIndica:        {Foreground: "#FFFFFF", Background: "#9900FF"},
		models.LineageHybrid:        {Foreground: "#FFFFFF", Background: "#009900"},
		models.LineageHybridSativa:  {Foreground: "#FFFFFF", Background: "#ED4123"},
		models.LineageHybridIndica:  {Foreground: "#FFFFFF", Background: "#9900FF"},
		models.LineageCBD:           {Foreground: "#000000", Background: "#F1C232"},
		models.LineageMixed:         {Foreground: "#FFFFFF", Background: "#0021F5"},
		models.LineageParaphernalia: {Foreground: "#000000", Background: "#FFC0CB"},
	}
}

// Lookup returns the colours for lineage display text.
func (p Palette) Lookup(text string) Colors {
	l, ok := models.ParseLineage(text)
	if !ok {
		return Fallback
	}
	if c, ok := p[l]; ok {
		return c
	}
	return Fallback
}
