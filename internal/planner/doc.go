// Package planner turns a VariantPlan and probed source metadata into the
// ordered list of encode jobs one optimization call performs.
//
// It owns the pure decisions of the pipeline: fit-inside resize bounds,
// next-gen quality offsets, responsive width filtering, and output keys.
// Nothing here touches pixels or the filesystem.
package planner
