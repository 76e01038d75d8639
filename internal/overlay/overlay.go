package overlay

import (
	"image"
	"image/draw"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/hue-variants-mcp/internal/config"
)

// BandFraction is the share of the image height covered by the text band.
const BandFraction = 0.15

// measureSample is the representative string used to measure line height.
const measureSample = "Sample"

// Options configures a Renderer.
type Options struct {
	FontPath         string
	DefaultFontPath  string
	FontSize         float64
	BackgroundColor  string
	HighTextColor    string
	DownTextColor    string
	UseWhiteHighText bool

	// NoBuiltinFont stops the fallback chain before the bitmap face, leaving
	// the renderer without a font when both font files fail.
	NoBuiltinFont bool
}

// OptionsFromConfig maps a job configuration to renderer options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		FontPath:         cfg.FontPath,
		DefaultFontPath:  config.DefaultFontPath,
		FontSize:         cfg.FontSize,
		BackgroundColor:  cfg.BackgroundColor,
		HighTextColor:    cfg.HighTextColor,
		DownTextColor:    cfg.DownTextColor,
		UseWhiteHighText: cfg.UseWhiteHighText,
	}
}

// Renderer draws slogan groups. Fonts and colors are resolved once, in NewRenderer.
type Renderer struct {
	mu         sync.Mutex
	face       font.Face
	fontSource string
	palette    Palette
}

// NewRenderer resolves the font chain and palette described by opts.
func NewRenderer(opts Options) *Renderer {
	size := opts.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}

	face, source := resolveFace(opts.FontPath, opts.DefaultFontPath, size, !opts.NoBuiltinFont)
	return &Renderer{
		face:       face,
		fontSource: source,
		palette:    ResolvePalette(opts.BackgroundColor, opts.HighTextColor, opts.DownTextColor, opts.UseWhiteHighText),
	}
}

// FontSource reports which step of the font chain is in use.
func (r *Renderer) FontSource() string {
	return r.fontSource
}

// Palette returns the resolved colors.
func (r *Renderer) Palette() Palette {
	return r.palette
}

// Close releases the font face.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.face == nil {
		return nil
	}
	err := r.face.Close()
	r.face = nil
	return err
}

// AddText returns a copy of img with lines drawn on the top band.
//
// img itself is returned, untouched, when there is no usable font, when lines
// is empty, or when any line is not valid UTF-8 text.
func (r *Renderer) AddText(img image.Image, lines []string) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.face == nil {
		log.Printf("Overlay: no usable font, skipping text")
		return img
	}
	if len(lines) == 0 {
		log.Printf("Overlay: empty slogan group, skipping text")
		return img
	}
	for _, line := range lines {
		if !utf8.ValidString(line) {
			log.Printf("Overlay: slogan line %q is not valid text, skipping text", line)
			return img
		}
	}

	dst := imaging.Clone(img)
	width := dst.Bounds().Dx()
	bandHeight := int(BandFraction * float64(dst.Bounds().Dy()))

	draw.Draw(dst, image.Rect(0, 0, width, bandHeight), image.NewUniform(r.palette.Background), image.Point{}, draw.Src)

	sample, _ := font.BoundString(r.face, measureSample)
	lineHeight := (sample.Max.Y - sample.Min.Y).Ceil()
	yStart := (bandHeight - lineHeight*len(lines)) / 2

	d := &font.Drawer{Dst: dst, Face: r.face}
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		bounds, _ := font.BoundString(r.face, line)
		x := (width - bounds.Max.X.Ceil()) / 2
		top := yStart + i*lineHeight

		col := r.palette.High
		if i == 1 {
			col = r.palette.Down
		}

		d.Src = image.NewUniform(col)
		// Align the top of the measured sample with the line's top edge.
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(top) - sample.Min.Y}
		d.DrawString(line)
	}

	return dst
}
