// Package encoder turns a decoded image into the bytes of one derivative.
//
// JPEG and PNG are encoded in-process. WebP and AVIF are delegated to the
// cwebp and avifenc command-line tools: [Build] functions produce the argv,
// [Execute] runs it with stderr captured, and the patterns in errors.go
// classify a failed run into an [EncodeError] kind. A JPEG can optionally be
// rewritten losslessly by jpegtran into a progressive, Huffman-optimized
// stream.
//
// There are no retries at this layer. A failed encode is reported once and
// the caller decides what to do with the missing derivative.
package encoder
