package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMediaTypeFor(t *testing.T) {
	// Source and markup files upload as plain text; the Files API rejects
	// their registered MIME types.
	for _, path := range []string{"main.go", "notes.md", "deploy.sh", "config.yaml", "data.csv"} {
		assert.Equal(t, "text/plain", mediaTypeFor(path), "path %s", path)
	}

	assert.Contains(t, mediaTypeFor("report.pdf"), "application/pdf")
	assert.Equal(t, "application/octet-stream", mediaTypeFor("blob.xyz123"))
}

func TestAnthropicFileInfo(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := anthropicFile{
		ID:        "file-abc",
		Filename:  "report.txt",
		SizeBytes: 128,
		MimeType:  "text/plain",
		CreatedAt: created,
	}

	info := f.info()
	assert.Equal(t, "file-abc", info.ID)
	assert.Equal(t, "report.txt", info.Name)
	assert.Equal(t, int64(128), info.Size)
	assert.Equal(t, "text/plain", info.MediaType)
	assert.Equal(t, created, info.CreatedAt)
}
