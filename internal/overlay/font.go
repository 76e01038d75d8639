package overlay

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Font sources reported by Renderer.FontSource.
const (
	FontSourceConfigured = "configured"
	FontSourceDefault    = "default"
	FontSourceBuiltin    = "builtin"
	FontSourceNone       = "none"
)

// DefaultFontSize is the point size used when none is configured.
const DefaultFontSize = 50

// loadFace parses an OpenType or TrueType file and builds a face at size points.
func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return nil, fmt.Errorf("no font path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// resolveFace walks the fallback chain and reports which source won.
func resolveFace(configured, platformDefault string, size float64, allowBuiltin bool) (font.Face, string) {
	face, err := loadFace(configured, size)
	if err == nil {
		return face, FontSourceConfigured
	}
	log.Printf("Overlay: failed to load font %q: %v; trying %q", configured, err, platformDefault)

	face, err = loadFace(platformDefault, size)
	if err == nil {
		return face, FontSourceDefault
	}

	if !allowBuiltin {
		log.Printf("Overlay: default font %q unavailable: %v; text rendering disabled", platformDefault, err)
		return nil, FontSourceNone
	}

	log.Printf("Overlay: default font %q unavailable: %v; using built-in bitmap font", platformDefault, err)
	return basicfont.Face7x13, FontSourceBuiltin
}
