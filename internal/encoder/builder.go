package encoder

import "strconv"

// BuildCWebP constructs the cwebp argument slice for one WebP encode.
// Metadata is stripped; method trades encode time for size (0-6).
func BuildCWebP(bin, input, output string, quality, method int) []string {
	return []string{
		bin,
		"-quiet",
		"-q", strconv.Itoa(quality),
		"-m", strconv.Itoa(method),
		"-metadata", "none",
		input,
		"-o", output,
	}
}

// BuildAVIFEnc constructs the avifenc argument slice for one AVIF encode.
// A single worker thread keeps concurrency under the caller's pool.
func BuildAVIFEnc(bin, input, output string, quality, speed int) []string {
	return []string{
		bin,
		"-q", strconv.Itoa(quality),
		"-s", strconv.Itoa(speed),
		"-j", "1",
		input,
		output,
	}
}

// BuildJPEGTran constructs the jpegtran argument slice for a lossless
// progressive rewrite from stdin to stdout.
func BuildJPEGTran(bin string) []string {
	return []string{bin, "-copy", "none", "-optimize", "-progressive"}
}
