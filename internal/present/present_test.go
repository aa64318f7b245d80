package present

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestTonemapDividesBySampleCount(t *testing.T) {
	// One pixel accumulated twice at full red.
	area := []float32{2, 0, 0, 2}
	img, err := Tonemap(area, 1, 1)
	if err != nil {
		t.Fatalf("Tonemap: %v", err)
	}
	c := img.RGBAAt(0, 0)
	if c.R != 255 || c.G != 0 || c.B != 0 || c.A != 255 {
		t.Fatalf("pixel = %+v, want full red", c)
	}
}

func TestTonemapClampsOverbright(t *testing.T) {
	area := []float32{10, 0.5, -1, 1}
	img, err := Tonemap(area, 1, 1)
	if err != nil {
		t.Fatalf("Tonemap: %v", err)
	}
	c := img.RGBAAt(0, 0)
	if c.R != 255 {
		t.Errorf("overbright channel = %d, want 255", c.R)
	}
	if c.B != 0 {
		t.Errorf("negative channel = %d, want 0", c.B)
	}
}

func TestTonemapRejectsShortBuffer(t *testing.T) {
	if _, err := Tonemap(make([]float32, 7), 2, 1); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestWritePNGDownscales(t *testing.T) {
	w, h := 8, 4
	area := make([]float32, w*h*4)
	for i := 0; i < w*h; i++ {
		area[i*4] = 0.5
		area[i*4+3] = 1
	}
	path := filepath.Join(t.TempDir(), "snap.png")
	if err := WritePNG(path, area, w, h, 4); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 4 || cfg.Height != 2 {
		t.Fatalf("snapshot is %dx%d, want 4x2", cfg.Width, cfg.Height)
	}
}
