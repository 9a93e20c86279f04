package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpostma/toolgate/internal/llm"
	"github.com/mpostma/toolgate/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"), logging.New(nil, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleHistory() []llm.Message {
	return []llm.Message{
		llm.TextMessage(llm.RoleUser, "what files are here?"),
		{
			Role: llm.RoleAssistant,
			Content: []llm.ContentBlock{{
				Type:    "tool_use",
				ToolUse: &llm.ToolUse{ID: "tu-1", Name: "list_directory", Input: json.RawMessage(`{"path":"."}`)},
			}},
		},
		{
			Role: llm.RoleTool,
			Content: []llm.ContentBlock{{
				Type:       "tool_result",
				ToolResult: &llm.ToolResultBlock{ToolUseID: "tu-1", Content: `{"entries":["a.txt"]}`},
			}},
		},
		llm.TextMessage(llm.RoleAssistant, "There is one file: a.txt"),
	}
}

func TestSaveAndLoadHistory(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveHistory("s1", sampleHistory()))

	got, err := db.LoadHistory("s1")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, llm.RoleUser, got[0].Role)
	assert.Equal(t, "what files are here?", got[0].Text())

	require.NotNil(t, got[1].Content[0].ToolUse)
	assert.Equal(t, "tu-1", got[1].Content[0].ToolUse.ID)
	assert.Equal(t, json.RawMessage(`{"path":"."}`), got[1].Content[0].ToolUse.Input)

	require.NotNil(t, got[2].Content[0].ToolResult)
	assert.Equal(t, "tu-1", got[2].Content[0].ToolResult.ToolUseID)
}

func TestSaveHistoryOverwrites(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveHistory("s1", sampleHistory()))
	short := []llm.Message{llm.TextMessage(llm.RoleUser, "fresh start")}
	require.NoError(t, db.SaveHistory("s1", short))

	got, err := db.LoadHistory("s1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh start", got[0].Text())
}

func TestLoadHistoryUnknownSession(t *testing.T) {
	db := openTestDB(t)

	got, err := db.LoadHistory("never-saved")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListSessions(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveHistory("s1", sampleHistory()))
	require.NoError(t, db.SaveHistory("s2", sampleHistory()))

	ids, err := db.ListSessions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, ids)
}

func TestDeleteSession(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SaveHistory("s1", sampleHistory()))
	require.NoError(t, db.DeleteSession("s1"))

	got, err := db.LoadHistory("s1")
	require.NoError(t, err)
	assert.Empty(t, got)

	ids, err := db.ListSessions()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	log := logging.New(nil, "silent")

	db, err := Open(path, log)
	require.NoError(t, err)
	require.NoError(t, db.SaveHistory("s1", sampleHistory()))
	require.NoError(t, db.Close())

	db, err = Open(path, log)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.LoadHistory("s1")
	require.NoError(t, err)
	assert.Len(t, got, 4)
}
