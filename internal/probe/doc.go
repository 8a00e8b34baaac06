// Package probe inspects source images. [Probe] reads only the encoded
// header plus the byte size, so dimension limits are enforced before any
// pixel buffer is allocated; [Decode] performs the single full decode an
// optimization call needs.
//
// Decoders for GIF, WebP, BMP, and TIFF are registered so those inputs are
// reported as unsupported rather than as corrupt.
package probe
