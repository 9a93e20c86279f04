package session

import (
	"context"
	"errors"
	"sync"

	"github.com/mpostma/toolgate/internal/llm"
)

// FileRecord is attachment metadata returned by ListFiles.
type FileRecord struct {
	llm.FileInfo
	Persistent bool `json:"persistent"`
}

// attachmentSet tracks uploaded files and which of them are persistently
// attached. It has its own lock so uploads and deletes can run concurrently
// with an in-flight Call; the persistent-count invariant is enforced under
// that lock.
type attachmentSet struct {
	mu      sync.Mutex
	limit   int
	remote  llm.FileStore
	entries []FileRecord // ordered oldest first
}

func newAttachmentSet(limit int) *attachmentSet {
	return &attachmentSet{limit: limit}
}

// add records an upload. When attaching would exceed the persistent limit,
// the oldest persistent entries are evicted first. Returns the evicted ids.
func (a *attachmentSet) add(info llm.FileInfo, persistent bool) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var evicted []string
	if persistent {
		for a.persistentCountLocked() >= a.limit {
			id := a.evictOldestLocked()
			if id == "" {
				break
			}
			evicted = append(evicted, id)
		}
	}
	a.entries = append(a.entries, FileRecord{FileInfo: info, Persistent: persistent})
	return evicted
}

func (a *attachmentSet) persistentCountLocked() int {
	n := 0
	for _, e := range a.entries {
		if e.Persistent {
			n++
		}
	}
	return n
}

// evictOldestLocked demotes the oldest persistent entry. The file itself stays
// uploaded; it just stops riding along on every turn.
func (a *attachmentSet) evictOldestLocked() string {
	for i := range a.entries {
		if a.entries[i].Persistent {
			a.entries[i].Persistent = false
			return a.entries[i].ID
		}
	}
	return ""
}

func (a *attachmentSet) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.entries {
		if e.ID == id {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			return
		}
	}
}

// persistentIDs snapshots the persistent attachment ids, oldest first.
func (a *attachmentSet) persistentIDs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []string
	for _, e := range a.entries {
		if e.Persistent {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (a *attachmentSet) isPersistent(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.ID == id {
			return e.Persistent
		}
	}
	return false
}

// UploadFile uploads a local file to the provider. With autoAttach the file
// becomes a persistent attachment referenced on every subsequent turn, subject
// to the attachment limit (oldest evicted first).
func (s *Session) UploadFile(ctx context.Context, path string, autoAttach bool) (string, error) {
	if s.files.remote == nil {
		return "", errors.New("no file store configured")
	}
	info, err := s.files.remote.Upload(ctx, path)
	if err != nil {
		return "", err
	}
	evicted := s.files.add(*info, autoAttach)
	for _, id := range evicted {
		s.log.Info().Str("fileId", id).Msg("evicted oldest persistent attachment")
	}
	s.log.Info().Str("fileId", info.ID).Str("name", info.Name).Bool("persistent", autoAttach).Msg("file uploaded")
	return info.ID, nil
}

// DeleteFile removes an uploaded file from the provider and from the
// attachment set. Returns false on any failure.
func (s *Session) DeleteFile(ctx context.Context, id string) bool {
	if s.files.remote == nil {
		return false
	}
	if err := s.files.remote.Delete(ctx, id); err != nil {
		s.log.Warn().Str("fileId", id).Err(err).Msg("failed to delete file")
		return false
	}
	s.files.remove(id)
	return true
}

// ListFiles returns metadata for all files uploaded to the provider,
// annotated with their persistence status in this session.
func (s *Session) ListFiles(ctx context.Context) ([]FileRecord, error) {
	if s.files.remote == nil {
		return nil, errors.New("no file store configured")
	}
	infos, err := s.files.remote.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]FileRecord, len(infos))
	for i, info := range infos {
		out[i] = FileRecord{FileInfo: info, Persistent: s.files.isPersistent(info.ID)}
	}
	return out, nil
}
