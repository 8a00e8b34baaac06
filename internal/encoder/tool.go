package encoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/backmassage/mediaopt/internal/media"
)

// WebP encodes through cwebp.
type WebP struct {
	Bin     string
	Method  int
	TempDir string
}

func (e *WebP) Format() media.Format { return media.FormatWebP }

func (e *WebP) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	return runTool(ctx, media.FormatWebP, e.Bin, e.TempDir, img, func(bin, in, out string) []string {
		return BuildCWebP(bin, in, out, quality, e.Method)
	})
}

// AVIF encodes through avifenc.
type AVIF struct {
	Bin     string
	Speed   int
	TempDir string
}

func (e *AVIF) Format() media.Format { return media.FormatAVIF }

func (e *AVIF) Encode(ctx context.Context, img image.Image, quality int) ([]byte, error) {
	return runTool(ctx, media.FormatAVIF, e.Bin, e.TempDir, img, func(bin, in, out string) []string {
		return BuildAVIFEnc(bin, in, out, quality, e.Speed)
	})
}

// runTool writes img as a fast PNG intermediate into a private temp dir,
// runs the tool built by argv, and returns the output file's bytes.
func runTool(ctx context.Context, f media.Format, name, tempDir string, img image.Image, argv func(bin, in, out string) []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &EncodeError{Format: f, Kind: KindCanceled, Err: err}
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, &EncodeError{Format: f, Kind: KindToolMissing, Err: err}
	}

	dir, err := os.MkdirTemp(tempDir, "mediaopt-"+string(f)+"-")
	if err != nil {
		return nil, WrapIO(f, err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	if err := writeIntermediate(in, img); err != nil {
		return nil, WrapIO(f, err)
	}
	out := filepath.Join(dir, "out"+f.Extension())

	if res := Execute(ctx, argv(bin, in, out), nil); res.Err != nil {
		return nil, classify(ctx, f, res)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, WrapIO(f, err)
	}
	if len(data) == 0 {
		return nil, &EncodeError{Format: f, Kind: KindRejected, Err: errors.New("tool produced empty output")}
	}
	return data, nil
}

func writeIntermediate(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("write intermediate: %w", err)
	}
	return file.Close()
}
