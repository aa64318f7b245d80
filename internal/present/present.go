// Package present converts the tracer's floating-point accumulator
// into presentable images on the host side: a PNG snapshot for offline
// inspection, optionally downscaled. The per-frame presentation path
// stays on the device; this is the debug exit only.
package present

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// Tonemap performs the same accumulator-to-8-bit conversion the device
// kernel applies on present: divide by the sample count carried in the
// alpha lane, clamp to [0, 1].
func Tonemap(area []float32, width, height int) (*image.RGBA, error) {
	if len(area) != width*height*4 {
		return nil, fmt.Errorf("present: accumulator has %d floats, want %d", len(area), width*height*4)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			samples := area[i+3]
			if samples < 1 {
				samples = 1
			}
			img.SetRGBA(x, y, color.RGBA{
				R: to8(area[i] / samples),
				G: to8(area[i+1] / samples),
				B: to8(area[i+2] / samples),
				A: 255,
			})
		}
	}
	return img, nil
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Downscale resamples img to the given size with a Catmull-Rom kernel.
func Downscale(img *image.RGBA, width, height int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), img, img.Bounds(), draw.Over, nil)
	return out
}

// WritePNG tonemaps the accumulator and writes it to path. maxSize > 0
// bounds the longer image edge, downscaling when exceeded.
func WritePNG(path string, area []float32, width, height, maxSize int) error {
	img, err := Tonemap(area, width, height)
	if err != nil {
		return err
	}
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		scale := float64(maxSize) / float64(max(width, height))
		img = Downscale(img, int(float64(width)*scale), int(float64(height)*scale))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("present: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("present: encoding %s: %w", path, err)
	}
	return nil
}
