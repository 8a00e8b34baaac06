package encoder

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/backmassage/mediaopt/internal/media"
)

// PNG encodes lossless PNG in-process. Quality is ignored.
type PNG struct {
	BestCompression bool
}

func (e *PNG) Format() media.Format { return media.FormatPNG }

func (e *PNG) Encode(ctx context.Context, img image.Image, _ int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Format: media.FormatPNG, Kind: KindCanceled, Err: err}
	}

	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if e.BestCompression {
		enc.CompressionLevel = png.BestCompression
	}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &EncodeError{Format: media.FormatPNG, Kind: KindRejected, Err: err}
	}
	return buf.Bytes(), nil
}
