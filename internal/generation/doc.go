// Package generation defines the boundary between the video pipeline and the
// AI providers behind it. Script ideation, voice synthesis, transcription,
// segment optimisation, clip and image generation are each described by a
// small interface so that the Gradio Spaces, the Hugging Face inference
// router and Gemini can be swapped or faked independently.
//
// The package also owns the provider-agnostic rules applied to generated
// scripts: token budgets per target duration and the cleanup that makes raw
// model output suitable for text-to-speech.
package generation
