// Package overlay renders slogan text onto a colored band at the top of an image.
//
// Rendering never fails the caller. Problems degrade to a documented fallback
// and are logged as warnings:
//
//   - Fonts: the configured font file, then the platform default font, then the
//     built-in 7x13 bitmap face from golang.org/x/image/font/basicfont.
//   - Colors: invalid specs fall back to white (background), black (high text),
//     and #8B0000 (down text). Text colors that would match the background are
//     replaced so the text stays visible.
//   - Lines: an empty group or a line that is not valid UTF-8 leaves the image
//     untouched.
//
// # Layout
//
// The band covers the top 15% of the image height and is filled with the
// background color. Line height is measured on the string "Sample"; the block
// of lines is centered vertically in the band and each line is centered
// horizontally. The second line of a group (index 1) uses the down color and
// every other line uses the high color.
//
// # Thread Safety
//
// A Renderer may be shared by concurrent callers. Font faces are not safe for
// concurrent use, so drawing is serialized internally.
package overlay
