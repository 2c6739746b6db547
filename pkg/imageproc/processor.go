// Package imageproc loads the source image and normalizes it to the feed
// constraints Instagram documents for photo posts: aspect ratio between
// 4:5 and 1.91:1, longest edge 1080px, JPEG delivery.
package imageproc

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"igposter/pkg/config"
	"igposter/pkg/errors"
	"igposter/pkg/logger"
)

// Processed is the transient pixel buffer derived from the source image.
// It lives only for the duration of the posting step.
type Processed struct {
	Data       []byte
	Width      int
	Height     int
	Format     string
	SourcePath string
}

// Processor normalizes source images to the target platform's constraints
type Processor struct {
	maxDimension int
	quality      int
	minAspect    float64
	maxAspect    float64
	log          logger.Logger
}

// NewProcessor creates a processor from the image configuration
func NewProcessor(cfg *config.ImageConfig, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{
		maxDimension: cfg.MaxDimension,
		quality:      cfg.JPEGQuality,
		minAspect:    cfg.MinAspectRatio,
		maxAspect:    cfg.MaxAspectRatio,
		log:          log,
	}
}

// ProcessFile loads and normalizes a local image file
func (p *Processor) ProcessFile(path string) (*Processed, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.NewImageError(fmt.Sprintf("cannot load image %q", path), err)
	}
	return p.process(img, path)
}

// ProcessBytes normalizes an already-fetched image payload
func (p *Processor) ProcessBytes(data []byte, source string) (*Processed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.NewImageError(fmt.Sprintf("cannot decode image from %q", source), err)
	}
	return p.process(img, source)
}

func (p *Processor) process(img image.Image, source string) (*Processed, error) {
	bounds := img.Bounds()
	p.log.DebugWithFields("processing image", map[string]interface{}{
		"source": source,
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	})

	img = p.normalizeAspect(img)
	img = p.constrainSize(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, errors.NewImageError(fmt.Sprintf("cannot encode image from %q", source), err)
	}

	result := &Processed{
		Data:       buf.Bytes(),
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
		Format:     "jpeg",
		SourcePath: source,
	}

	p.log.InfoWithFields("image processed", map[string]interface{}{
		"source": source,
		"width":  result.Width,
		"height": result.Height,
		"bytes":  len(result.Data),
	})

	return result, nil
}

// normalizeAspect center-crops to a square when the source falls outside
// the allowed aspect ratio range. Images already within bounds pass
// through untouched.
func (p *Processor) normalizeAspect(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return img
	}

	ratio := float64(width) / float64(height)
	if ratio >= p.minAspect && ratio <= p.maxAspect {
		return img
	}

	side := width
	if height < side {
		side = height
	}

	p.log.DebugWithFields("cropping to square", map[string]interface{}{
		"ratio": ratio,
		"side":  side,
	})

	return imaging.CropCenter(img, side, side)
}

// constrainSize downscales with Lanczos so the longest edge fits the
// configured maximum. Smaller images are never upscaled.
func (p *Processor) constrainSize(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width <= p.maxDimension && height <= p.maxDimension {
		return img
	}

	if width >= height {
		return imaging.Resize(img, p.maxDimension, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, p.maxDimension, imaging.Lanczos)
}
