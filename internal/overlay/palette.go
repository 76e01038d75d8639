package overlay

import (
	"image/color"
	"log"

	"github.com/ironsheep/hue-variants-mcp/internal/imaging"
)

var (
	white   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	darkRed = color.RGBA{R: 0x8B, G: 0, B: 0, A: 255}
)

// Palette is the resolved set of colors used for one overlay.
type Palette struct {
	Background color.RGBA
	High       color.RGBA
	Down       color.RGBA
}

// ResolvePalette turns color specs into a palette that always keeps text
// visible: after resolution High and Down both differ from Background.
func ResolvePalette(background, high, down string, useWhiteHigh bool) Palette {
	if useWhiteHigh {
		high = "white"
	}

	p := Palette{
		Background: parseOr(background, "background", white),
		High:       parseOr(high, "high text", black),
		Down:       parseOr(down, "down text", darkRed),
	}

	if p.High == p.Background {
		replacement := black
		if p.Background == black {
			replacement = white
		}
		log.Printf("Overlay: high text color %s matches background, using %s",
			imaging.HexString(p.High), imaging.HexString(replacement))
		p.High = replacement
	}

	if p.Down == p.Background {
		replacement := darkRed
		if p.Background == darkRed {
			replacement = white
		}
		log.Printf("Overlay: down text color %s matches background, using %s",
			imaging.HexString(p.Down), imaging.HexString(replacement))
		p.Down = replacement
	}

	return p
}

func parseOr(spec, role string, fallback color.RGBA) color.RGBA {
	c, err := imaging.ParseColor(spec)
	if err != nil {
		log.Printf("Overlay: invalid %s color %q (%v), using %s", role, spec, err, imaging.HexString(fallback))
		return fallback
	}
	return c
}
