// Package naming derives output identifiers for image derivatives and
// recognizes names that are already derivatives.
//
// Given a source key "dir/name.ext" the derivative set is:
//
//	dir/name-optimized.ext     primary re-encode
//	dir/name.webp              next-gen A, full size
//	dir/name.avif              next-gen B, full size
//	dir/name-<width>w.<ext>    responsive, per (width, format)
//
// The primary format keeps the source's own extension; other formats use
// their canonical extension. Derivation is purely lexical so repeated runs
// against the same key place outputs identically.
package naming
