package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/Faultbox/surface-atlas/internal/atlas"
)

var (
	emptyColor   = color.RGBA{16, 16, 16, 255}
	paddingColor = color.RGBA{0, 0, 0, 255}
	faceColors   = [atlas.FaceCount]color.RGBA{
		{220, 60, 60, 255},  // +X
		{120, 30, 30, 255},  // -X
		{60, 200, 60, 255},  // +Y
		{30, 100, 30, 255},  // -Y
		{70, 110, 230, 255}, // +Z
		{35, 55, 120, 255},  // -Z
	}
)

// FaceColor returns the color used for tiles of face f.
func FaceColor(f atlas.Face) color.RGBA {
	return faceColors[f]
}

// OccupancyImage draws every live tile of the cache, colored by face, with
// its padding row and column left dark.
func OccupancyImage(c *atlas.Cache) *image.RGBA {
	res := c.Resolution()
	img := image.NewRGBA(image.Rect(0, 0, res, res))
	fill(img, img.Bounds(), emptyColor)

	c.Packer().Walk(func(t *atlas.Tile) {
		fill(img, image.Rect(t.X, t.Y, t.X+t.Width, t.Y+t.Height), paddingColor)
		vp := atlas.TileViewport(t)
		fill(img, image.Rect(vp.X, vp.Y, vp.X+vp.Width, vp.Y+vp.Height), FaceColor(t.Value.Face))
	})
	return img
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// ImageFromPixels converts bottom-up RGBA rows, as read back from OpenGL,
// into a top-down image.
func ImageFromPixels(pixels []byte, width, height int) (*image.RGBA, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// Downscale shrinks img so neither edge exceeds maxSize. Nearest-neighbor
// keeps tile borders sharp. Images already small enough are returned as is.
func Downscale(img *image.RGBA, maxSize int) *image.RGBA {
	b := img.Bounds()
	if maxSize <= 0 || (b.Dx() <= maxSize && b.Dy() <= maxSize) {
		return img
	}
	w, h := maxSize, maxSize
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*maxSize/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*maxSize/b.Dy())
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return file.Close()
}
