// Package media holds the domain types shared by the optimization pipeline:
// image formats, source handles, probed metadata, and variant descriptors.
//
// Nothing in this package performs I/O beyond opening a source for reading.
package media
