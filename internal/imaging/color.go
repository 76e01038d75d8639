package imaging

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// namedColors is the allow-list of color names accepted by ParseColor.
var namedColors = map[string]color.RGBA{
	"white": {R: 255, G: 255, B: 255, A: 255},
	"black": {R: 0, G: 0, B: 0, A: 255},
	"red":   {R: 255, G: 0, B: 0, A: 255},
	"blue":  {R: 0, G: 0, B: 255, A: 255},
	"green": {R: 0, G: 128, B: 0, A: 255},
}

// NamedColors returns the sorted list of color names accepted by ParseColor.
func NamedColors() []string {
	names := make([]string, 0, len(namedColors))
	for name := range namedColors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseColor resolves a color specification to an opaque RGBA color.
//
// Parameters:
//   - spec: Either a hex triplet ("#RGB" or "#RRGGBB") or one of the names
//     returned by NamedColors. Matching is case-insensitive and ignores
//     surrounding whitespace.
//
// Returns:
//   - color.RGBA: The resolved color with A=255.
//   - error: Non-nil if spec is neither a valid hex triplet nor an allowed name.
//
// Named colors follow the CSS definitions, so "green" is #008000, not #00FF00.
func ParseColor(spec string) (color.RGBA, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}

	if c, ok := namedColors[s]; ok {
		return c, nil
	}

	if !strings.HasPrefix(s, "#") || (len(s) != 4 && len(s) != 7) {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #RGB, #RRGGBB, or one of %v", spec, NamedColors())
	}

	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", spec, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// HexString formats c as "#RRGGBB", dropping alpha.
func HexString(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02X%02X%02X", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
