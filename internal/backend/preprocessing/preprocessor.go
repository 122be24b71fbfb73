package preprocessing

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultImageSize is the square edge length the leaf model was trained on
	DefaultImageSize = 128
	channels         = 3
)

// ErrInvalidImage is returned when the input cannot be decoded as a raster image
var ErrInvalidImage = errors.New("invalid image")

// Tensor is a dense float32 batch in NHWC layout
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Len returns the number of elements described by Shape
func (t *Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// Preprocessor turns an image file into the model input tensor
type Preprocessor struct {
	size int
}

func NewPreprocessor(size int) (*Preprocessor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("image size must be positive, got %d", size)
	}
	return &Preprocessor{size: size}, nil
}

// Size returns the edge length of the square model input
func (p *Preprocessor) Size() int {
	return p.size
}

// FromFile decodes the image at path and converts it into a (1, size, size, 3) tensor
func (p *Preprocessor) FromFile(path string) (*Tensor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			slog.Warn("Preprocessor: failed to close image file", "path", path, "error", cerr)
		}
	}()

	return p.FromReader(file)
}

// FromReader decodes an image from r and converts it into a (1, size, size, 3) tensor
func (p *Preprocessor) FromReader(r io.Reader) (*Tensor, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrInvalidImage)
	}

	slog.Debug("Preprocessor: decoded image",
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"target_size", p.size)

	return p.FromImage(img), nil
}

// FromImage resizes img and scales each RGB channel into [0,1]
func (p *Preprocessor) FromImage(img image.Image) *Tensor {
	scaled := image.NewNRGBA(image.Rect(0, 0, p.size, p.size))
	src := opaque(img)
	// one source pixel per output pixel, no filtering when shrinking
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	tensor := &Tensor{
		Shape: [4]int{1, p.size, p.size, channels},
		Data:  make([]float32, p.size*p.size*channels),
	}

	rowStride := p.size * channels
	parallelFor(p.size, func(y int) {
		row := tensor.Data[y*rowStride : (y+1)*rowStride]
		pix := scaled.Pix[y*scaled.Stride : y*scaled.Stride+p.size*4]
		for x := 0; x < p.size; x++ {
			i := x * channels
			row[i] = float32(pix[x*4]) / 255.0
			row[i+1] = float32(pix[x*4+1]) / 255.0
			row[i+2] = float32(pix[x*4+2]) / 255.0
		}
	})

	return tensor
}

// opaque copies img into an NRGBA with alpha forced to 255, keeping the
// un-premultiplied colour of transparent pixels intact through scaling.
func opaque(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	parallelFor(bounds.Dy(), func(y int) {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+bounds.Dx()*4]
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			row[x*4] = c.R
			row[x*4+1] = c.G
			row[x*4+2] = c.B
			row[x*4+3] = 0xff
		}
	})
	return dst
}
