package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/miyog/miyog-engine/internal/domain/timeline"
	"gopkg.in/yaml.v3"
)

// maxTimelineBytes bounds timeline files read by the CLI.
const maxTimelineBytes = 8 << 20

// loadTimeline reads a timeline from path ("-" for stdin). YAML and JSON are
// accepted, either as a full timeline object or as a bare track list; fps
// and duration fill in what the file leaves out.
func loadTimeline(path string, stdin io.Reader, fps int, duration float64) (*timeline.Timeline, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = readAllLimited(stdin, maxTimelineBytes)
	} else {
		var f *os.File
		f, err = os.Open(path) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("open timeline: %w", err)
		}
		defer func() { _ = f.Close() }()
		raw, err = readAllLimited(f, maxTimelineBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}

	data, err := toJSON(path, raw)
	if err != nil {
		return nil, err
	}
	return timeline.Decode(data, fps, duration)
}

// toJSON converts YAML input to JSON so the timeline's JSON decoding (and
// its defaults) apply to both formats.
func toJSON(path string, raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	ext := strings.ToLower(filepath.Ext(path))
	isJSON := ext == ".json" || (ext == "" || path == "-") && len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
	if isJSON {
		return trimmed, nil
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return data, nil
}
