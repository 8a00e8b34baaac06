package media

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"strings"
)

// SourceAsset identifies one input image. The pipeline borrows it for the
// duration of a single optimization call and never mutates or removes it.
type SourceAsset struct {
	// Key is the slash-separated name derivatives are named after,
	// e.g. "shop/chair.jpg".
	Key string

	// Format is the declared format (usually from the extension). The
	// prober trusts content over this value.
	Format Format

	open func() (io.ReadCloser, error)
	size func() (int64, bool)
}

// FileSource returns a SourceAsset reading from the file at filePath. key
// names the derivatives; when empty the file's base name is used.
func FileSource(filePath, key string) SourceAsset {
	if key == "" {
		key = path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	}
	return SourceAsset{
		Key:    key,
		Format: FormatFromPath(filePath),
		open:   func() (io.ReadCloser, error) { return os.Open(filePath) },
		size: func() (int64, bool) {
			fi, err := os.Stat(filePath)
			if err != nil {
				return 0, false
			}
			return fi.Size(), true
		},
	}
}

// BytesSource returns a SourceAsset over an in-memory payload, as handed
// over by an upload handler.
func BytesSource(key string, data []byte) SourceAsset {
	return SourceAsset{
		Key:    key,
		Format: FormatFromPath(key),
		open:   func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
		size:   func() (int64, bool) { return int64(len(data)), true },
	}
}

// StreamSource returns a SourceAsset whose size is unknown until read, such
// as a multipart upload part. open must return a new reader on every call.
func StreamSource(key string, open func() (io.ReadCloser, error)) SourceAsset {
	return SourceAsset{Key: key, Format: FormatFromPath(key), open: open}
}

// Open returns a fresh reader positioned at the start of the source.
func (s SourceAsset) Open() (io.ReadCloser, error) {
	if s.open == nil {
		return nil, errors.New("media: source has no reader")
	}
	return s.open()
}

// Size reports the source byte size when it is known without reading.
func (s SourceAsset) Size() (int64, bool) {
	if s.size == nil {
		return 0, false
	}
	return s.size()
}

// SourceMetadata is the intrinsic description of a source, derived once per
// optimization call.
type SourceMetadata struct {
	Width  int
	Height int
	Size   int64
	Format Format
}

// Pixels returns Width*Height.
func (m SourceMetadata) Pixels() int64 {
	return int64(m.Width) * int64(m.Height)
}
