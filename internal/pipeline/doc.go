// Package pipeline turns queued video tasks into finished videos.
//
// A task carrying an editor timeline is rendered as-is: its media is fetched
// from object storage or the web, composed into one ffmpeg graph and
// exported. A task without one runs the AI pipeline: script, narration,
// transcription, segment prompts, one generated clip per segment, and a
// render of the timeline assembled from those clips.
//
// Either way progress is written to the task row and published to the
// progress broker, and the task ends Completed with the key of the rendered
// object or with an "Error: ..." status.
package pipeline
