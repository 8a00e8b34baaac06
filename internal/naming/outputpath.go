package naming

import (
	"path"
	"strconv"
	"strings"

	"github.com/backmassage/mediaopt/internal/media"
)

// OptimizedSuffix marks the primary re-encode of a source.
const OptimizedSuffix = "-optimized"

// Primary returns the key of the primary re-encode for sourceKey.
//
//	shop/chair.jpg -> shop/chair-optimized.jpg
func Primary(sourceKey string) string {
	dir, stem, ext := split(sourceKey)
	return join(dir, stem+OptimizedSuffix+ext)
}

// NextGen returns the key of the full-size derivative of sourceKey in format f.
//
//	shop/chair.jpg, webp -> shop/chair.webp
func NextGen(sourceKey string, f media.Format) string {
	dir, stem, ext := split(sourceKey)
	return join(dir, stem+extFor(ext, f))
}

// Responsive returns the key of the width-bound derivative of sourceKey.
//
//	shop/chair.jpg, 600, jpeg -> shop/chair-600w.jpg
//	shop/chair.jpg, 600, avif -> shop/chair-600w.avif
func Responsive(sourceKey string, width int, f media.Format) string {
	dir, stem, ext := split(sourceKey)
	return join(dir, stem+"-"+strconv.Itoa(width)+"w"+extFor(ext, f))
}

// split breaks a slash-separated key into directory, stem, and extension.
// Backslashes are treated as separators so Windows-style keys behave the same.
func split(key string) (dir, stem, ext string) {
	key = strings.ReplaceAll(key, "\\", "/")
	dir, base := path.Split(key)
	ext = path.Ext(base)
	stem = strings.TrimSuffix(base, ext)
	return strings.TrimSuffix(dir, "/"), stem, ext
}

func join(dir, file string) string {
	if dir == "" {
		return file
	}
	return dir + "/" + file
}

// extFor keeps the source extension when f is the source's own format so
// "photo.JPEG" derivatives stay "photo-300w.JPEG".
func extFor(sourceExt string, f media.Format) string {
	if media.ParseFormat(sourceExt) == f && sourceExt != "" {
		return sourceExt
	}
	return f.Extension()
}
