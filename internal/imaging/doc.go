// Package imaging provides the pixel-level operations used by the variant pipeline.
//
// This package implements hue rotation in HSV space, color specification parsing,
// cached image loading, and atomic JPEG persistence. All operations work with
// standard Go image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Hue Rotation
//
// RotateHue treats hue as a circular quantity measured in degrees:
//   - A shift is normalized into [0, 360) before use, so 360 and -360 are no-ops
//   - Saturation, value, and alpha pass through unchanged
//   - The source image is never mutated; a fresh *image.NRGBA is returned
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. RotateHue and ParseColor are
// stateless and can be called concurrently. RotateHue itself fans rows out
// across CPUs, so callers should not add another layer of per-row parallelism.
//
// # Color Representation
//
// Color specifications accepted by ParseColor:
//   - Hex: "#RGB" or "#RRGGBB" (case-insensitive)
//   - Named: "white", "black", "red", "blue", "green"
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Unparseable color specifications
//   - File I/O errors during image loading
//   - Encoding or rename errors during image output
package imaging
