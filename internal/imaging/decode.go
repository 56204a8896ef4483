package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is the edge length every decoded image is resized to.
const Size = 224

// Channels is the number of color channels kept after decoding.
const Channels = 3

// MaxPixels caps the width×height an image header may declare. It is checked
// before the raster is allocated.
const MaxPixels = 89_478_485

// ErrDecode is returned when the bytes are empty, truncated, or not a
// recognized image encoding.
var ErrDecode = errors.New("decode image")

// Options tweak decoding. The zero value matches the plain decode path.
type Options struct {
	// ApplyOrientation rotates/flips JPEGs according to their EXIF tag
	// before resizing.
	ApplyOrientation bool
}

// Normalized is a Size×Size RGB image stored as interleaved bytes (HWC).
type Normalized struct {
	Pix    []uint8
	Format string
}

// Decode turns raw bytes into a Normalized image.
func Decode(raw []byte) (*Normalized, error) {
	return DecodeWithOptions(raw, Options{})
}

// DecodeWithOptions is Decode with explicit options.
func DecodeWithOptions(raw []byte, opts Options) (*Normalized, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d is %d pixels, limit is %d", ErrDecode, cfg.Width, cfg.Height, pixels, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	img = dropAlpha(img)
	if opts.ApplyOrientation && format == "jpeg" {
		img = correctOrientation(img, orientation(raw))
	}

	resized := resize.Resize(Size, Size, img, resize.Bicubic)
	return &Normalized{Pix: packRGB(resized), Format: format}, nil
}

// dropAlpha makes img opaque without compositing, so a transparent pixel
// keeps its color. The decoded raster is rewritten in place where its type
// allows it.
func dropAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	switch m := img.(type) {
	case *image.NRGBA:
		for i := 3; i < len(m.Pix); i += 4 {
			m.Pix[i] = 0xff
		}
		return m
	case *image.NRGBA64:
		for i := 6; i+1 < len(m.Pix); i += 8 {
			m.Pix[i], m.Pix[i+1] = 0xff, 0xff
		}
		return m
	case *image.RGBA:
		for i := 0; i+3 < len(m.Pix); i += 4 {
			c := color.NRGBAModel.Convert(color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: m.Pix[i+3]}).(color.NRGBA)
			m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = c.R, c.G, c.B, 0xff
		}
		return m
	case *image.Paletted:
		palette := make(color.Palette, len(m.Palette))
		for i, entry := range m.Palette {
			c := color.NRGBAModel.Convert(entry).(color.NRGBA)
			c.A = 0xff
			palette[i] = c
		}
		m.Palette = palette
		return m
	case *image.NYCbCrA:
		return &m.YCbCr
	}
	return flattenRGB(img)
}

// flattenRGB copies any other source type into an opaque RGBA image.
func flattenRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			i := out.PixOffset(x-bounds.Min.X, y-bounds.Min.Y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

func packRGB(img image.Image) []uint8 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, width*height*Channels)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := (y*width + x) * Channels
			pix[i+0] = c.R
			pix[i+1] = c.G
			pix[i+2] = c.B
		}
	}
	return pix
}

// Len is the number of pixels.
func (n *Normalized) Len() int {
	return len(n.Pix) / Channels
}
