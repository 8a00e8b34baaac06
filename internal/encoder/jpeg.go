package encoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"os/exec"

	"github.com/backmassage/mediaopt/internal/media"
)

// JPEG encodes baseline JPEG in-process. With Progressive set and jpegtran
// available, the baseline stream is rewritten losslessly into an optimized
// progressive one; any jpegtran failure falls back to the baseline bytes.
type JPEG struct {
	Progressive bool
	JPEGTran    string
}

func (e *JPEG) Format() media.Format { return media.FormatJPEG }

func (e *JPEG) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Format: media.FormatJPEG, Kind: KindCanceled, Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, &EncodeError{Format: media.FormatJPEG, Kind: KindRejected, Err: err}
	}
	baseline := buf.Bytes()
	if !e.Progressive || e.JPEGTran == "" {
		return baseline, nil
	}

	bin, err := exec.LookPath(e.JPEGTran)
	if err != nil {
		return baseline, nil
	}
	res := Execute(ctx, BuildJPEGTran(bin), bytes.NewReader(baseline))
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Format: media.FormatJPEG, Kind: KindCanceled, Err: err}
	}
	if res.Err != nil || len(res.Stdout) == 0 {
		return baseline, nil
	}
	return res.Stdout, nil
}
