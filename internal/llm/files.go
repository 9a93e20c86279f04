package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const anthropicFilesURL = "https://api.anthropic.com/v1/files"

// textLikeExtensions are source/markup extensions the Files API rejects under
// their registered MIME type; they upload fine as plain text.
var textLikeExtensions = map[string]bool{
	".md": true, ".py": true, ".js": true, ".go": true, ".html": true,
	".css": true, ".json": true, ".xml": true, ".yaml": true, ".yml": true,
	".sh": true, ".bat": true, ".sql": true, ".csv": true,
}

// AnthropicFileStore implements FileStore over the Anthropic Files API.
type AnthropicFileStore struct {
	apiKey string
	client *http.Client
}

// NewAnthropicFileStore creates a file store. With an empty apiKey the
// ANTHROPIC_API_KEY environment variable is used.
func NewAnthropicFileStore(apiKey string) *AnthropicFileStore {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &AnthropicFileStore{
		apiKey: apiKey,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *AnthropicFileStore) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")
	req.Header.Set("anthropic-beta", filesBeta)
}

// mediaTypeFor picks the upload content type for a local file.
func mediaTypeFor(path string) string {
	ext := filepath.Ext(path)
	if textLikeExtensions[ext] {
		return "text/plain"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// anthropicFile is the wire shape of a file object.
type anthropicFile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

func (f anthropicFile) info() FileInfo {
	return FileInfo{
		ID:        f.ID,
		Name:      f.Filename,
		Size:      f.SizeBytes,
		MediaType: f.MimeType,
		CreatedAt: f.CreatedAt,
	}
}

// Upload stores a local file with the provider and returns its metadata.
func (s *AnthropicFileStore) Upload(ctx context.Context, path string) (*FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{
		fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(path)),
	}
	hdr["Content-Type"] = []string{mediaTypeFor(path)}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicFilesURL, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	respBody, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var file anthropicFile
	if err := json.Unmarshal(respBody, &file); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}
	info := file.info()
	return &info, nil
}

// Delete removes an uploaded file.
func (s *AnthropicFileStore) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, anthropicFilesURL+"/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)
	_, err = s.do(req)
	return err
}

// List returns all uploaded files.
func (s *AnthropicFileStore) List(ctx context.Context) ([]FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, anthropicFilesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	s.setHeaders(req)

	respBody, err := s.do(req)
	if err != nil {
		return nil, err
	}

	var page struct {
		Data []anthropicFile `json:"data"`
	}
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	infos := make([]FileInfo, len(page.Data))
	for i, f := range page.Data {
		infos[i] = f.info()
	}
	return infos, nil
}

func (s *AnthropicFileStore) do(req *http.Request) ([]byte, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("files request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read files response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("files API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
