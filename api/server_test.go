package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/poiesic/concierge/ai/mock"
	"github.com/poiesic/concierge/core"
	"github.com/poiesic/concierge/prompt"
	"github.com/poiesic/concierge/search"
	"github.com/poiesic/concierge/storage"
	"github.com/poiesic/concierge/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server    *Server
	repo      storage.KnowledgeRepository
	completer *mock.MockCompleter
}

func setupServer(t *testing.T, withCompleter bool) *fixture {
	t.Helper()

	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
		backend.Close()
	})

	_, err = repo.AddEntries(context.Background(),
		&core.KnowledgeEntry{TenantID: "grand-hotel", Language: "en", Question: "What time is check-in?",
			Answer: "Check-in starts at 3pm.", Keywords: "checkin, arrival", Priority: 2, IsActive: true},
		&core.KnowledgeEntry{TenantID: "grand-hotel", Language: "en", Question: "Is there parking?",
			Answer: "Valet parking is available.", Keywords: "parking, garage", Priority: 1, IsActive: true},
		&core.KnowledgeEntry{TenantID: "grand-hotel", Language: "de", Question: "Gibt es Parkplätze?",
			Answer: "Ja, in der Tiefgarage.", Keywords: "parken", IsActive: true},
	)
	require.NoError(t, err)

	var completer *mock.MockCompleter
	if withCompleter {
		completer = mock.NewMockCompleter()
	}
	searcher, err := search.NewSearcher(repo, mock.NewMockProviderWithServices(nil, completer))
	require.NoError(t, err)
	t.Cleanup(func() { searcher.Close() })

	var assembler *prompt.Assembler
	if completer != nil {
		assembler, err = prompt.NewAssembler(searcher, completer)
	} else {
		assembler, err = prompt.NewAssembler(searcher, nil)
	}
	require.NoError(t, err)

	server, err := NewServer(searcher, repo, assembler, nil)
	require.NoError(t, err)

	return &fixture{server: server, repo: repo, completer: completer}
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestNewServer_Validation(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewServer(nil, repo, nil, nil)
	assert.ErrorIs(t, err, ErrSearcherRequired)

	_, err = NewServer(&panickingSearcher{}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestHealth(t *testing.T) {
	f := setupServer(t, false)

	status, body := doJSON(t, f.server, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestSearch(t *testing.T) {
	f := setupServer(t, false)

	status, body := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/search",
		map[string]any{"query": "What time is check-in?"})
	require.Equal(t, http.StatusOK, status)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "What time is check-in?", resp.Results[0].Question)
	assert.Equal(t, core.SourceLexical, resp.Results[0].Source)

	id := core.EntryID("grand-hotel", "en", "What time is check-in?")
	entry, err := f.repo.GetEntry(context.Background(), "grand-hotel", id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.UsageCount)
}

func TestSearch_EmptyResults(t *testing.T) {
	f := setupServer(t, false)

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{name: "unknown tenant", path: "/api/v1/tenants/seaside-inn/search", body: map[string]any{"query": "parking"}},
		{name: "blank query", path: "/api/v1/tenants/grand-hotel/search", body: map[string]any{"query": "   "}},
		{name: "other language", path: "/api/v1/tenants/grand-hotel/search", body: map[string]any{"query": "check-in", "language": "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, f.server, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusOK, status)
			assert.JSONEq(t, `{"results":[]}`, string(body))
		})
	}
}

func TestSearch_BadRequest(t *testing.T) {
	f := setupServer(t, false)

	status, body := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/search", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid request body")

	status, _ = doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/search",
		map[string]any{"query": "parking", "limit": -1})
	assert.Equal(t, http.StatusBadRequest, status)
}

type panickingSearcher struct{}

func (p *panickingSearcher) Search(ctx context.Context, tenantID, query, language string, limit int) []core.MatchCandidate {
	panic("boom")
}

func TestSearch_PanicRecovered(t *testing.T) {
	repo, backend, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	defer backend.Close()

	server, err := NewServer(&panickingSearcher{}, repo, nil, nil)
	require.NoError(t, err)

	status, body := doJSON(t, server, http.MethodPost, "/api/v1/tenants/grand-hotel/search",
		map[string]any{"query": "parking"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "boom")
}

func TestListEntries(t *testing.T) {
	f := setupServer(t, false)

	status, body := doJSON(t, f.server, http.MethodGet, "/api/v1/tenants/grand-hotel/entries", nil)
	require.Equal(t, http.StatusOK, status)
	var all entriesResponse
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all.Entries, 3)

	status, body = doJSON(t, f.server, http.MethodGet, "/api/v1/tenants/grand-hotel/entries?language=DE", nil)
	require.Equal(t, http.StatusOK, status)
	var german entriesResponse
	require.NoError(t, json.Unmarshal(body, &german))
	require.Len(t, german.Entries, 1)
	assert.Equal(t, "Gibt es Parkplätze?", german.Entries[0].Question)
	assert.Nil(t, german.Entries[0].LastUsed)

	status, body = doJSON(t, f.server, http.MethodGet, "/api/v1/tenants/nobody/entries", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"entries":[]}`, string(body))
}

func TestChat(t *testing.T) {
	f := setupServer(t, true)
	f.completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		return "Check-in is from 3pm.", nil
	}

	status, body := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/chat", map[string]any{
		"message":       "What time is check-in?",
		"business_name": "Grand Hotel",
	})
	require.Equal(t, http.StatusOK, status)

	var reply prompt.ChatReply
	require.NoError(t, json.Unmarshal(body, &reply))
	assert.Equal(t, "Check-in is from 3pm.", reply.Reply)
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, "What time is check-in?", reply.Sources[0].Question)

	system := f.completer.LastSystemPrompt()
	assert.Contains(t, system, "Grand Hotel")
	assert.Contains(t, system, "Check-in starts at 3pm.")
}

func TestChat_Errors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := setupServer(t, false)
		status, _ := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/chat",
			map[string]any{"message": "hello"})
		assert.Equal(t, http.StatusServiceUnavailable, status)
	})

	t.Run("empty message", func(t *testing.T) {
		f := setupServer(t, true)
		status, _ := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/chat",
			map[string]any{"message": "  "})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, 0, f.completer.CallCount())
	})

	t.Run("completion failure", func(t *testing.T) {
		f := setupServer(t, true)
		f.completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
			return "", errors.New("upstream unavailable")
		}
		status, body := doJSON(t, f.server, http.MethodPost, "/api/v1/tenants/grand-hotel/chat",
			map[string]any{"message": "Is there parking?"})
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Contains(t, string(body), "upstream unavailable")
	})
}
