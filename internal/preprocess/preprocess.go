// Package preprocess turns uploaded image bytes into the NHWC tensor the
// classifier expects.
package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Brownie44l1/streetscan-api/internal/model"
)

const channels = 3

// ErrDecode is returned when the input is not a supported image.
var ErrDecode = errors.New("cannot decode image")

// Preprocessor resizes images to a square target and scales pixels to [0,1].
type Preprocessor struct {
	size      int
	maxPixels int64
}

// New returns a Preprocessor producing tensors of shape (1, size, size, 3).
// Images declaring more than maxPixels pixels are rejected before decoding.
func New(size int, maxPixels int64) *Preprocessor {
	return &Preprocessor{size: size, maxPixels: maxPixels}
}

// Decode parses data into an image. GIFs yield their first frame.
func (p *Preprocessor) Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > p.maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d image exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, p.maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return img, format, nil
}

func (p *Preprocessor) Process(data []byte) (model.Tensor, error) {
	img, _, err := p.Decode(data)
	if err != nil {
		return model.Tensor{}, err
	}
	return p.Tensor(img), nil
}

// Tensor converts img into an NHWC float32 tensor. Alpha is discarded without
// compositing, the same as converting to RGB.
func (p *Preprocessor) Tensor(img image.Image) model.Tensor {
	target := uint(p.size)
	resized := resize.Resize(target, target, imaging.Clone(img), resize.Bicubic)
	rgba := imaging.Clone(resized)

	width, height := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	data := make([]float32, 0, width*height*channels)
	for y := 0; y < height; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+width*4]
		for x := 0; x < width*4; x += 4 {
			data = append(data,
				float32(row[x])/255.0,
				float32(row[x+1])/255.0,
				float32(row[x+2])/255.0,
			)
		}
	}

	return model.Tensor{
		Shape: []int64{1, int64(height), int64(width), channels},
		Data:  data,
	}
}
