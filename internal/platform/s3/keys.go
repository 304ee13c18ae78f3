package s3

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// Key prefixes used across the bucket.
const (
	PrefixUploads           = "uploads/"
	PrefixGenerated         = "generated/"
	PrefixGeneratedAudio    = "generated_audio/"
	PrefixGeneratedSegments = "generated_segments/"
	PrefixCompleted         = "completed/"
)

// UploadKey returns the key for a user upload, keeping the extension of the
// original filename or "tmp" when it has none.
func UploadKey(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "tmp"
	}
	return PrefixUploads + uuid.NewString() + "." + ext
}

// GeneratedImageKey returns the key of an image generated for a user.
func GeneratedImageKey(userID uuid.UUID) string {
	return PrefixGenerated + userID.String() + "/" + uuid.NewString() + ".png"
}

// GeneratedVideoKey returns the key of a video clip generated for a user.
func GeneratedVideoKey(userID uuid.UUID) string {
	return PrefixGenerated + userID.String() + "/" + uuid.NewString() + ".mp4"
}

// VoiceKey returns the key of a synthesised voice track.
func VoiceKey() string {
	return PrefixGeneratedAudio + "voice_" + uuid.NewString() + ".wav"
}

// SegmentKey returns the key of a clip generated for one script segment.
func SegmentKey() string {
	return PrefixGeneratedSegments + "clip_" + uuid.NewString() + ".mp4"
}

// FinalKey returns the key of an AI pipeline render.
func FinalKey() string {
	return PrefixCompleted + "final_" + uuid.NewString() + ".mp4"
}

// ExportKey returns the key of an editor timeline export.
func ExportKey() string {
	return PrefixCompleted + "export_" + uuid.NewString() + ".mp4"
}

// ContentTypeFor guesses a content type from a key's extension.
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp4":
		return "video/mp4"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
