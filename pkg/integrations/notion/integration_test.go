package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeNotion serves the subset of the Notion API used by Integration
type fakeNotion struct {
	t         *testing.T
	mu        sync.Mutex
	requests  []recordedRequest
	handshake atomic.Int32
	pages     map[string]bool
	results   [][]map[string]any
	failWith  int
}

func newFakeNotion(t *testing.T) (*fakeNotion, *httptest.Server) {
	f := &fakeNotion{t: t, pages: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeNotion) handle(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, "Bearer secret", r.Header.Get("Authorization"))
	assert.Equal(f.t, DefaultAPIVersion, r.Header.Get("Notion-Version"))

	var body map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
	failWith := f.failWith
	f.mu.Unlock()

	if failWith != 0 {
		writeJSON(w, failWith, map[string]any{"object": "error", "status": failWith, "code": "internal_server_error", "message": "boom"})
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/databases/"):
		f.handshake.Add(1)
		if r.URL.Path != "/databases/db-leads" {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "object_not_found", "message": "Could not find database"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "database", "id": "db-leads"})

	case r.Method == http.MethodPost && r.URL.Path == "/pages":
		f.mu.Lock()
		id := fmt.Sprintf("page-%d", len(f.pages)+1)
		f.pages[id] = true
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"object": "page", "id": id})

	case r.Method == http.MethodPatch && strings.HasPrefix(r.URL.Path, "/pages/"):
		id := strings.TrimPrefix(r.URL.Path, "/pages/")
		f.mu.Lock()
		exists := f.pages[id]
		f.mu.Unlock()
		if !exists {
			writeJSON(w, http.StatusNotFound, map[string]any{"status": 404, "code": "object_not_found", "message": "Could not find page"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": "page", "id": id})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/query"):
		page := 0
		if cursor, ok := body["start_cursor"].(string); ok {
			fmt.Sscanf(cursor, "cursor-%d", &page)
		}
		resp := map[string]any{"object": "list", "results": []map[string]any{}, "has_more": false, "next_cursor": nil}
		if page < len(f.results) {
			resp["results"] = f.results[page]
			if page+1 < len(f.results) {
				resp["has_more"] = true
				resp["next_cursor"] = fmt.Sprintf("cursor-%d", page+1)
			}
		}
		writeJSON(w, http.StatusOK, resp)

	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": 400, "code": "invalid_request", "message": "unexpected request"})
	}
}

func (f *fakeNotion) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func leadPage(id, name string, number int) map[string]any {
	return map[string]any{
		"object": "page",
		"id":     id,
		"properties": map[string]any{
			"ID":   map[string]any{"type": "unique_id", "unique_id": map[string]any{"number": number}},
			"Name": map[string]any{"type": "title", "title": []any{map[string]any{"text": map[string]any{"content": name}}}},
		},
	}
}

func testConfig(srv *httptest.Server) types.NotionConfig {
	return types.NotionConfig{
		Token:     "secret",
		BaseURL:   srv.URL,
		Databases: map[string]string{"leads": "db-leads"},
	}
}

func TestConnect(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token fails before network", func(t *testing.T) {
		fake, srv := newFakeNotion(t)
		cfg := testConfig(srv)
		cfg.Token = ""

		err := New(types.RecordKindLead, cfg).Connect(ctx)
		assert.True(t, types.IsConfigurationError(err))
		assert.Empty(t, fake.recorded())
	})

	t.Run("missing database fails before network", func(t *testing.T) {
		fake, srv := newFakeNotion(t)

		err := New(types.RecordKindEmail, testConfig(srv)).Connect(ctx)
		require.True(t, types.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "NOTION_EMAILS_DATABASE_ID")
		assert.Empty(t, fake.recorded())
	})

	t.Run("rejected handshake", func(t *testing.T) {
		_, srv := newFakeNotion(t)
		cfg := testConfig(srv)
		cfg.Databases["leads"] = "db-missing"

		err := New(types.RecordKindLead, cfg).Connect(ctx)
		assert.True(t, types.IsConnectionError(err))
	})

	t.Run("concurrent connects share one handshake", func(t *testing.T) {
		fake, srv := newFakeNotion(t)
		integration := New(types.RecordKindLead, testConfig(srv))

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, integration.Connect(ctx))
			}()
		}
		wg.Wait()
		require.NoError(t, integration.Connect(ctx))

		assert.LessOrEqual(t, fake.handshake.Load(), int32(8))
		assert.GreaterOrEqual(t, fake.handshake.Load(), int32(1))

		before := fake.handshake.Load()
		require.NoError(t, integration.Connect(ctx))
		assert.Equal(t, before, fake.handshake.Load())
	})

	t.Run("cancelled caller leaves the shared handshake running", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		var handshakes atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if handshakes.Add(1) == 1 {
				close(started)
			}
			<-release
			writeJSON(w, http.StatusOK, map[string]any{"object": "database", "id": "db-leads"})
		}))
		t.Cleanup(srv.Close)
		integration := New(types.RecordKindLead, testConfig(srv))

		first, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() { firstErr <- integration.Connect(first) }()
		<-started

		secondErr := make(chan error, 1)
		go func() { secondErr <- integration.Connect(ctx) }()

		cancel()
		assert.ErrorIs(t, <-firstErr, context.Canceled)

		close(release)
		assert.NoError(t, <-secondErr)
		assert.NoError(t, integration.Connect(ctx))
		assert.EqualValues(t, 1, handshakes.Load())
	})
}

func TestInsertUpdateArchive(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeNotion(t)
	leads := New(types.RecordKindLead, testConfig(srv))

	id, err := leads.Insert(ctx, types.NewLeadFromContact(types.Contact{Name: "Ada", Role: "CTO"}).ToRecord())
	require.NoError(t, err)
	assert.Equal(t, types.RecordID("page-1"), id)

	require.NoError(t, leads.Update(ctx, id, types.Record{types.LeadEmails: []types.Reference{{ID: "email-1"}}}))
	require.NoError(t, leads.Archive(ctx, id))

	err = leads.Update(ctx, "page-404", types.Record{types.LeadProfile: "CEO"})
	require.True(t, types.IsNotFound(err))
	assert.Equal(t, "lead not found: page-404", err.Error())

	requests := fake.recorded()
	require.Len(t, requests, 5)
	assert.Equal(t, http.MethodGet, requests[0].Method)

	insert := requests[1]
	assert.Equal(t, "/pages", insert.Path)
	assert.Equal(t, map[string]any{"database_id": "db-leads"}, insert.Body["parent"])
	properties := insert.Body["properties"].(map[string]any)
	assert.Contains(t, properties, "Name")
	assert.Contains(t, properties, "Profile")
	assert.NotContains(t, properties, "Email_Address")
	assert.Equal(t, map[string]any{"url": nil}, properties["Linkedin"])

	update := requests[2]
	assert.Equal(t, http.MethodPatch, update.Method)
	assert.Equal(t, map[string]any{
		"Emails": map[string]any{"relation": []any{map[string]any{"id": "email-1"}}},
	}, update.Body["properties"])

	archive := requests[3]
	assert.Equal(t, "/pages/page-1", archive.Path)
	assert.Equal(t, map[string]any{"archived": true}, archive.Body)
}

func TestBackendError(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeNotion(t)
	leads := New(types.RecordKindLead, testConfig(srv))
	require.NoError(t, leads.Connect(ctx))

	fake.mu.Lock()
	fake.failWith = http.StatusInternalServerError
	fake.mu.Unlock()

	_, err := leads.Insert(ctx, types.Record{types.LeadName: "Ada"})
	require.True(t, types.IsBackendError(err))

	var backendErr *types.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusInternalServerError, backendErr.Status)
	assert.Equal(t, "internal_server_error", backendErr.Code)
}

func TestQueryPaginates(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeNotion(t)
	fake.results = [][]map[string]any{
		{leadPage("p1", "Ada", 1), leadPage("p2", "Grace", 2)},
		{leadPage("p3", "Linus", 3)},
	}

	cfg := testConfig(srv)
	cfg.PageSize = 2
	leads := New(types.RecordKindLead, cfg)

	records, err := leads.Query(ctx,
		filter.MustField(types.LeadID, filter.Equals, 1),
		integrations.SortSpec{Timestamp: "created_time", Direction: integrations.Ascending},
	)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, types.RecordID("p3"), records[2].ID())
	assert.Equal(t, "Linus", records[2][types.LeadName])

	var queries []recordedRequest
	for _, req := range fake.recorded() {
		if strings.HasSuffix(req.Path, "/query") {
			queries = append(queries, req)
		}
	}
	require.Len(t, queries, 2)
	assert.Equal(t, "/databases/db-leads/query", queries[0].Path)
	assert.EqualValues(t, 2, queries[0].Body["page_size"])
	assert.NotContains(t, queries[0].Body, "start_cursor")
	assert.Equal(t, "cursor-1", queries[1].Body["start_cursor"])
	assert.Equal(t, map[string]any{"property": "ID", "unique_id": map[string]any{"equals": float64(1)}}, queries[0].Body["filter"])
	assert.Equal(t, []any{map[string]any{"timestamp": "created_time", "direction": "ascending"}}, queries[0].Body["sorts"])
}

func TestQueryUnknownField(t *testing.T) {
	_, srv := newFakeNotion(t)
	leads := New(types.RecordKindLead, testConfig(srv))

	_, err := leads.Query(context.Background(), filter.MustField("Nickname", filter.Equals, "x"))
	assert.True(t, types.IsUnknownField(err))
}
