// Package gemini implements script ideation and keyword extraction on top of
// Google's Gemini API.
//
// This package is an infrastructure adapter: GeminiGenerator satisfies the
// generation.ScriptGenerator and generation.KeywordExtractor interfaces and
// keeps the genai client types out of the rest of the application.
//
// Prompts are rendered from templates, transient API failures are retried
// with exponential backoff, and responses blocked by safety filters or
// lacking text are reported as permanent errors.
package gemini
