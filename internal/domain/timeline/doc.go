// Package timeline models the multi-track clip editor: tracks of
// non-overlapping clips, frame snapping, smart placement, and an undo/redo
// history built from invertible commands.
//
// Clips on a track are kept sorted by start time. Because clips on one track
// never overlap, their end times are sorted too, so collision checks are a
// binary search followed by a constant number of comparisons.
package timeline
