package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the encoder quality used when none is configured.
const DefaultJPEGQuality = 95

// SaveJPEG encodes img as JPEG and writes it to path as a whole file.
//
// Parameters:
//   - img: The image to encode. Alpha is flattened by the JPEG encoder.
//   - path: Destination file path. Its directory must already exist.
//   - quality: JPEG quality in the range 1-100. Values outside the range fall
//     back to DefaultJPEGQuality.
//
// Returns a non-nil error if the temporary file cannot be created, encoding
// fails, or the final rename fails.
//
// # Atomicity
//
// The image is encoded into a hidden temporary file in the destination directory
// and renamed over path only after a successful close. A reader therefore sees
// either the previous file, no file, or the complete new file, never a truncated
// one. On any error the temporary file is removed.
func SaveJPEG(img image.Image, path string, quality int) (err error) {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err = imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
