package imaging

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jpg")
	src := createInMemoryImage(64, 32, color.RGBA{200, 40, 40, 255})

	if err := SaveJPEG(src, path, 90); err != nil {
		t.Fatalf("SaveJPEG failed: %v", err)
	}

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("reloading saved JPEG failed: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 32 {
		t.Errorf("unexpected dimensions: %v", img.Bounds())
	}

	r, g, b, _ := img.At(32, 16).RGBA()
	if abs(int(r>>8)-200) > 8 || abs(int(g>>8)-40) > 8 || abs(int(b>>8)-40) > 8 {
		t.Errorf("decoded color too far from source: (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestSaveJPEG_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	src := createInMemoryImage(8, 8, color.RGBA{0, 0, 255, 255})

	for _, name := range []string{"a.jpg", "b.jpg", "a.jpg"} {
		if err := SaveJPEG(src, filepath.Join(dir, name), 0); err != nil {
			t.Fatalf("SaveJPEG(%s) failed: %v", name, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 files, got %d", len(entries))
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestSaveJPEG_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.jpg")
	src := createInMemoryImage(8, 8, color.RGBA{0, 0, 0, 255})

	if err := SaveJPEG(src, path, 90); err == nil {
		t.Error("SaveJPEG should fail when the directory does not exist")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("no file should exist at %s", path)
	}
}
