package mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/miyog/miyog-engine/internal/platform/s3"
)

// MockStorage implements s3.Storage in memory for testing. It is safe for
// concurrent use.
type MockStorage struct {
	UploadFn    func(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	DownloadFn  func(ctx context.Context, key, localPath string) error
	SignedURLFn func(ctx context.Context, key string) (string, error)

	// Err, when set, is returned by every operation.
	Err error

	mu           sync.Mutex
	Objects      map[string][]byte
	ContentTypes map[string]string
}

// NewMockStorage creates an empty in-memory bucket.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

// Put seeds an object.
func (m *MockStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = data
}

// Get returns a stored object.
func (m *MockStorage) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.Objects[key]
	return data, ok
}

// Keys returns the stored keys in order.
func (m *MockStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.Objects))
	for k := range m.Objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Upload implements s3.Storage
func (m *MockStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, key, body, contentType)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if key == "" {
		return "", s3.ErrEmptyKey
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.Objects[key] = data
	m.ContentTypes[key] = contentType
	m.mu.Unlock()
	return key, nil
}

// UploadFile implements s3.Storage
func (m *MockStorage) UploadFile(ctx context.Context, key, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	return m.Upload(ctx, key, bytes.NewReader(data), s3.ContentTypeFor(key))
}

// Download implements s3.Storage
func (m *MockStorage) Download(ctx context.Context, key, localPath string) error {
	if m.DownloadFn != nil {
		return m.DownloadFn(ctx, key, localPath)
	}
	if m.Err != nil {
		return m.Err
	}
	data, ok := m.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", s3.ErrObjectNotFound, key)
	}
	return os.WriteFile(localPath, data, 0o600)
}

// SignedURL implements s3.Storage
func (m *MockStorage) SignedURL(ctx context.Context, key string) (string, error) {
	if m.SignedURLFn != nil {
		return m.SignedURLFn(ctx, key)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if key == "" {
		return "", s3.ErrEmptyKey
	}
	return "https://signed.example.com/" + key, nil
}

// PresignUpload implements s3.Storage
func (m *MockStorage) PresignUpload(ctx context.Context, key, contentType string) (*s3.PresignedUpload, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if key == "" {
		return nil, s3.ErrEmptyKey
	}
	return &s3.PresignedUpload{
		URL:    "https://upload.example.com/" + key,
		Method: "PUT",
		Fields: map[string]string{"Content-Type": contentType},
		Path:   key,
	}, nil
}

var _ s3.Storage = (*MockStorage)(nil)
