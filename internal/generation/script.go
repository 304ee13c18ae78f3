package generation

import (
	"regexp"
	"strings"
)

// Script defaults shared by every provider.
const (
	DefaultDuration    = "30 Seconds"
	DefaultTemperature = 0.7
	NarratorHook       = "Narrator"

	defaultMaxTokens = 512
	shortMaxTokens   = 256
	longMaxTokens    = 1024
)

var (
	bracketedPattern = regexp.MustCompile(`\[.*?\]`)
	newlinesPattern  = regexp.MustCompile(`\n+`)
	wordPattern      = regexp.MustCompile(`\b\w+\b`)
)

// MaxTokensFor returns the generation budget for a duration label.
func MaxTokensFor(duration string) int {
	switch {
	case strings.Contains(duration, "15"):
		return shortMaxTokens
	case strings.Contains(duration, "60"), strings.Contains(duration, "Minute"):
		return longMaxTokens
	default:
		return defaultMaxTokens
	}
}

// TargetWords returns the approximate narration length for a duration label.
func TargetWords(duration string) int {
	switch {
	case strings.Contains(duration, "15"):
		return 40
	case strings.Contains(duration, "60"), strings.Contains(duration, "Minute"):
		return 150
	default:
		return 75
	}
}

// CleanScript strips stage directions and markdown so the text can be read
// aloud as-is.
func CleanScript(raw string) string {
	text := strings.TrimSpace(raw)
	text = bracketedPattern.ReplaceAllString(text, "")
	text = strings.NewReplacer("*", "", "#", "").Replace(text)
	text = strings.TrimSpace(text)
	return newlinesPattern.ReplaceAllString(text, " ")
}

// CountWords counts word-character runs in text.
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// NewScript cleans raw model output into a Script.
func NewScript(topic, raw, generatedBy string) *Script {
	text := CleanScript(raw)
	return &Script{
		Text:        text,
		Hook:        NarratorHook,
		Topic:       topic,
		WordCount:   CountWords(text),
		GeneratedBy: generatedBy,
	}
}
