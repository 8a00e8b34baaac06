package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	// Registered so Probe can tell unsupported formats from corrupt input.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/backmassage/mediaopt/internal/media"
)

// Limits bounds the sources accepted for encoding. A zero field disables
// that check.
type Limits struct {
	MaxDimension int   // Largest accepted width or height. Default: 16384.
	MaxPixels    int64 // Largest accepted width*height. Default: 100 MP.
}

// DefaultLimits returns the source bounds applied when none are configured.
func DefaultLimits() Limits {
	return Limits{MaxDimension: 16384, MaxPixels: 100_000_000}
}

// Probe reads the header of src and returns its intrinsic metadata. It
// fails with a *ProbeError when the source is unreadable, corrupt, not JPEG
// or PNG, or beyond limits.
func Probe(ctx context.Context, src media.SourceAsset, limits Limits) (media.SourceMetadata, error) {
	if err := ctx.Err(); err != nil {
		return media.SourceMetadata{}, err
	}

	rc, err := src.Open()
	if err != nil {
		return media.SourceMetadata{}, &ProbeError{Key: src.Key, Kind: KindDecode, Err: err}
	}
	defer rc.Close()

	counter := &countingReader{r: rc}
	br := bufio.NewReader(counter)
	cfg, name, err := image.DecodeConfig(br)
	if err != nil {
		return media.SourceMetadata{}, &ProbeError{Key: src.Key, Kind: decodeKind(err), Err: err}
	}

	meta := media.SourceMetadata{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: media.ParseFormat(name),
	}
	if !meta.Format.Optimizable() {
		return media.SourceMetadata{}, &ProbeError{
			Key:  src.Key,
			Kind: KindUnsupported,
			Err:  fmt.Errorf("decoded as %s", name),
		}
	}
	if err := limits.check(meta); err != nil {
		return media.SourceMetadata{}, &ProbeError{Key: src.Key, Kind: KindTooLarge, Err: err}
	}

	if size, ok := src.Size(); ok {
		meta.Size = size
	} else {
		// Drain the remainder; the buffered bytes were already counted.
		if _, err := io.Copy(io.Discard, br); err != nil {
			return media.SourceMetadata{}, &ProbeError{Key: src.Key, Kind: KindDecode, Err: err}
		}
		meta.Size = counter.n
	}
	return meta, nil
}

// Decode fully decodes src. The result is shared read-only by every encode
// of one optimization call.
func Decode(ctx context.Context, src media.SourceAsset) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := src.Open()
	if err != nil {
		return nil, &ProbeError{Key: src.Key, Kind: KindDecode, Err: err}
	}
	defer rc.Close()

	img, _, err := image.Decode(bufio.NewReader(rc))
	if err != nil {
		return nil, &ProbeError{Key: src.Key, Kind: KindDecode, Err: err}
	}
	return img, nil
}

func (l Limits) check(meta media.SourceMetadata) error {
	if meta.Width <= 0 || meta.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", meta.Width, meta.Height)
	}
	if l.MaxDimension > 0 && (meta.Width > l.MaxDimension || meta.Height > l.MaxDimension) {
		return fmt.Errorf("%dx%d exceeds %d px per side", meta.Width, meta.Height, l.MaxDimension)
	}
	if l.MaxPixels > 0 && meta.Pixels() > l.MaxPixels {
		return fmt.Errorf("%dx%d exceeds %d pixels", meta.Width, meta.Height, l.MaxPixels)
	}
	return nil
}

// decodeKind reports input no registered decoder recognizes (HEIC, SVG,
// arbitrary bytes) as unsupported; a recognized header that fails to parse
// is corrupt.
func decodeKind(err error) Kind {
	if errors.Is(err, image.ErrFormat) {
		return KindUnsupported
	}
	return KindDecode
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
