package notion

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultPageSize = 100

// Integration stores one record kind in one Notion database
type Integration struct {
	kind       types.RecordKind
	databaseID string
	token      string
	pageSize   int
	client     *Client

	connected atomic.Bool
	connectSF singleflight.Group
}

// Option configures an Integration
type Option func(*Integration)

// WithHTTPClient replaces the HTTP client used for API calls
func WithHTTPClient(hc *http.Client) Option {
	return func(i *Integration) { i.client.HTTPClient = hc }
}

// WithBaseURL points the integration at another API root
func WithBaseURL(baseURL string) Option {
	return func(i *Integration) { i.client.BaseURL = strings.TrimRight(baseURL, "/") }
}

// New creates a Notion integration for kind. Missing credentials are reported by
// Connect, not here.
func New(kind types.RecordKind, cfg types.NotionConfig, opts ...Option) *Integration {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	i := &Integration{
		kind:       kind,
		databaseID: cfg.DatabaseID(kind),
		token:      cfg.Token,
		pageSize:   pageSize,
		client:     NewClient(cfg.Token, cfg.BaseURL, cfg.Version, cfg.Timeout),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ integrations.Integration = (*Integration)(nil)

func (i *Integration) Kind() types.RecordKind {
	return i.kind
}

// DatabaseEnv is the environment variable naming the database of a kind
func DatabaseEnv(kind types.RecordKind) string {
	return fmt.Sprintf("NOTION_%s_DATABASE_ID", strings.ToUpper(kind.String()))
}

// Connect validates credentials and retrieves the database once. Concurrent first
// calls share a single handshake.
func (i *Integration) Connect(ctx context.Context) error {
	if i.connected.Load() {
		return nil
	}

	if i.token == "" {
		return &types.ConfigurationError{Key: "NOTION_TOKEN"}
	}
	if i.databaseID == "" {
		return &types.ConfigurationError{Key: DatabaseEnv(i.kind)}
	}

	// The handshake is shared, so it must not be cut short by whichever caller
	// started it going away
	handshakeCtx := context.WithoutCancel(ctx)
	ch := i.connectSF.DoChan("connect", func() (any, error) {
		if i.connected.Load() {
			return nil, nil
		}
		var database map[string]any
		if err := i.client.Get(handshakeCtx, "/databases/"+i.databaseID, &database); err != nil {
			log.Error().Err(err).Str("kind", i.kind.String()).Msg("failed to connect to notion")
			return nil, &types.ConnectionError{Backend: schema.BackendNotion.String(), Err: err}
		}
		i.connected.Store(true)
		log.Info().Str("kind", i.kind.String()).Str("database_id", i.databaseID).Msg("connected to notion")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type pageResponse struct {
	ID string `json:"id"`
}

func (i *Integration) Insert(ctx context.Context, record types.Record) (types.RecordID, error) {
	if err := i.Connect(ctx); err != nil {
		return "", err
	}

	body := map[string]any{
		"parent":     map[string]any{"database_id": i.databaseID},
		"properties": FormatProperties(i.kind, record),
	}

	var page pageResponse
	if err := i.client.Post(ctx, "/pages", body, &page); err != nil {
		log.Error().Err(err).Str("kind", i.kind.String()).Msg("failed to insert record")
		return "", asBackendError("insert", i.kind, "", err)
	}

	log.Info().Str("kind", i.kind.String()).Str("page_id", page.ID).Msg("created page")
	return types.RecordID(page.ID), nil
}

func (i *Integration) Update(ctx context.Context, id types.RecordID, patch types.Record) error {
	if err := i.Connect(ctx); err != nil {
		return err
	}

	body := map[string]any{"properties": FormatProperties(i.kind, patch)}
	if err := i.client.Patch(ctx, "/pages/"+id.String(), body, nil); err != nil {
		log.Error().Err(err).Str("kind", i.kind.String()).Str("page_id", id.String()).Msg("failed to update record")
		return asBackendError("update", i.kind, id.String(), err)
	}

	log.Info().Str("kind", i.kind.String()).Str("page_id", id.String()).Msg("updated page")
	return nil
}

func (i *Integration) Archive(ctx context.Context, id types.RecordID) error {
	if err := i.Connect(ctx); err != nil {
		return err
	}

	body := map[string]any{"archived": true}
	if err := i.client.Patch(ctx, "/pages/"+id.String(), body, nil); err != nil {
		log.Error().Err(err).Str("kind", i.kind.String()).Str("page_id", id.String()).Msg("failed to archive record")
		return asBackendError("archive", i.kind, id.String(), err)
	}

	log.Info().Str("kind", i.kind.String()).Str("page_id", id.String()).Msg("archived page")
	return nil
}

type queryResponse struct {
	Results    []map[string]any `json:"results"`
	HasMore    bool             `json:"has_more"`
	NextCursor *string          `json:"next_cursor"`
}

// Query follows next_cursor until every page of results has been read
func (i *Integration) Query(ctx context.Context, expr filter.Expression, sorts ...integrations.SortSpec) ([]types.Record, error) {
	if err := i.Connect(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{"page_size": i.pageSize}
	if expr != nil {
		translated, err := TranslateFilter(i.kind, expr)
		if err != nil {
			return nil, err
		}
		body["filter"] = translated
	}
	if len(sorts) > 0 {
		body["sorts"] = sorts
	}

	records := []types.Record{}
	path := "/databases/" + i.databaseID + "/query"
	for {
		var resp queryResponse
		if err := i.client.Post(ctx, path, body, &resp); err != nil {
			log.Error().Err(err).Str("kind", i.kind.String()).Msg("failed to fetch records")
			return nil, asBackendError("query", i.kind, "", err)
		}

		for _, page := range resp.Results {
			records = append(records, ParsePage(page))
		}

		if !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		body["start_cursor"] = *resp.NextCursor
	}

	log.Debug().Str("kind", i.kind.String()).Int("count", len(records)).Msg("queried records")
	return records, nil
}
