package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/miyog/miyog-engine/internal/platform/huggingface"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

const (
	streamInitialBuffer = 64 * 1024
	streamMaxBuffer     = 4 * 1024 * 1024
)

var (
	// ErrSpaceError is returned when the Space reports an error event.
	ErrSpaceError = errors.New("space returned an error")
	// ErrNoResult is returned when the event stream ends without a result.
	ErrNoResult = errors.New("space stream ended without a result")
	// ErrNotFile is returned when an output is not a file reference.
	ErrNotFile = errors.New("output is not a file")
)

// SpaceURL returns the public URL of a Space. Full URLs are returned as-is;
// "owner/name" ids map to https://owner-name.hf.space.
func SpaceURL(spaceID string) string {
	if strings.HasPrefix(spaceID, "http://") || strings.HasPrefix(spaceID, "https://") {
		return strings.TrimRight(spaceID, "/")
	}
	host := strings.NewReplacer("/", "-", "_", "-", ".", "-").Replace(strings.ToLower(spaceID))
	return "https://" + host + ".hf.space"
}

// Client calls one Space.
type Client struct {
	base      string
	transport *huggingface.Transport
	logger    *slog.Logger
}

// NewClient creates a client for a Space id or URL.
func NewClient(spaceID string, transport *huggingface.Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:      SpaceURL(spaceID),
		transport: transport,
		logger:    logger.With(slog.String("component", "gradio"), slog.String("space", spaceID)),
	}
}

// BaseURL returns the Space URL.
func (c *Client) BaseURL() string { return c.base }

type callRequest struct {
	Data []any `json:"data"`
}

type callResponse struct {
	EventID string `json:"event_id"`
}

// Call invokes apiName with positional inputs and waits for its outputs.
func (c *Client) Call(ctx context.Context, apiName string, inputs ...any) ([]json.RawMessage, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)
	api := strings.TrimPrefix(apiName, "/")
	if inputs == nil {
		inputs = []any{}
	}

	body, err := json.Marshal(callRequest{Data: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode inputs: %w", err)
	}

	callURL := c.base + "/gradio_api/call/" + api
	resp, err := c.transport.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		log.Error("space call failed", slog.String("api", api), slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("call %s: %w", api, err)
	}

	var call callResponse
	err = json.NewDecoder(resp.Body).Decode(&call)
	_ = resp.Body.Close()
	if err != nil || call.EventID == "" {
		return nil, fmt.Errorf("call %s: missing event id", api)
	}

	log.Debug("space call queued", slog.String("api", api), slog.String("event_id", call.EventID))

	streamURL := callURL + "/" + url.PathEscape(call.EventID)
	stream, err := c.transport.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", api, err)
	}
	defer func() { _ = stream.Body.Close() }()

	out, err := readResult(stream.Body)
	if err != nil {
		log.Error("space stream failed", slog.String("api", api), slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("stream %s: %w", api, err)
	}
	return out, nil
}

// readResult consumes an event stream until a complete or error event.
func readResult(r io.Reader) ([]json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, streamInitialBuffer), streamMaxBuffer)

	var (
		event string
		data  []string
	)
	dispatch := func() ([]json.RawMessage, bool, error) {
		defer func() { event, data = "", nil }()
		payload := strings.Join(data, "\n")
		switch event {
		case "complete":
			var out []json.RawMessage
			if err := json.Unmarshal([]byte(payload), &out); err != nil {
				return nil, true, fmt.Errorf("decode outputs: %w", err)
			}
			return out, true, nil
		case "error":
			if payload == "" || payload == "null" {
				return nil, true, ErrSpaceError
			}
			return nil, true, fmt.Errorf("%w: %s", ErrSpaceError, payload)
		}
		return nil, false, nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if out, done, err := dispatch(); done {
				return out, err
			}
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if out, done, err := dispatch(); done {
		return out, err
	}
	return nil, ErrNoResult
}

// FileData references a file produced by or sent to a Space.
type FileData struct {
	Path string         `json:"path,omitempty"`
	URL  string         `json:"url,omitempty"`
	Meta map[string]any `json:"meta,omitempty"`
}

// FileInput wraps a URL so a Space accepts it as a file argument.
func FileInput(fileURL string) FileData {
	return FileData{Path: fileURL, URL: fileURL, Meta: map[string]any{"_type": "gradio.FileData"}}
}

// FileURL resolves the download URL of a file output. Outputs may be a file
// object, a {"video": file} wrapper or a bare path string.
func (c *Client) FileURL(output json.RawMessage) (string, error) {
	var wrapped struct {
		Video *FileData `json:"video"`
	}
	var file FileData
	var path string

	switch {
	case json.Unmarshal(output, &path) == nil && path != "":
		file.Path = path
	case json.Unmarshal(output, &wrapped) == nil && wrapped.Video != nil:
		file = *wrapped.Video
	case json.Unmarshal(output, &file) == nil:
	default:
		return "", ErrNotFile
	}

	switch {
	case file.URL != "":
		return file.URL, nil
	case strings.HasPrefix(file.Path, "http://"), strings.HasPrefix(file.Path, "https://"):
		return file.Path, nil
	case file.Path != "":
		return c.base + "/gradio_api/file=" + file.Path, nil
	default:
		return "", ErrNotFile
	}
}

// Download writes a file output to w.
func (c *Client) Download(ctx context.Context, output json.RawMessage, w io.Writer) error {
	fileURL, err := c.FileURL(output)
	if err != nil {
		return err
	}

	resp, err := c.transport.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	})
	if err != nil {
		return fmt.Errorf("download output: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download output: %w", err)
	}
	return nil
}
