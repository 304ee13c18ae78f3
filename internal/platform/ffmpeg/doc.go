// Package ffmpeg renders editor timelines to MP4 by driving the ffmpeg and
// ffprobe command-line tools.
//
// Compose turns a timeline plus the local files its clips resolve to into a
// single ffmpeg invocation built around one filter graph: a solid colour
// base, every visible clip overlaid in layer order, and the audible clips
// delayed and mixed into one track. Runner executes that invocation and
// reports encoding progress.
package ffmpeg
