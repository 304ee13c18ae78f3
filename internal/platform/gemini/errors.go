package gemini

import "errors"

// ErrEmptyTopic rejects script requests without a topic.
var ErrEmptyTopic = errors.New("topic cannot be empty")
