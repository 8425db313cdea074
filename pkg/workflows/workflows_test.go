package workflows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/beam-cloud/onleads/pkg/common"
	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/integrations/memory"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExtractor []types.Contact

func (s staticExtractor) ExtractContacts(ctx context.Context, url string) ([]types.Contact, error) {
	return s, nil
}

// fakeGenerator writes "Hello <name>" and fails for names listed in failFor
type fakeGenerator struct {
	mu      sync.Mutex
	calls   []map[string]string
	failFor map[string]bool
	delay   time.Duration

	// during runs once, on the first call, before the email is returned
	during func()
	once   sync.Once
}

var errGeneration = errors.New("generation failed")

func (g *fakeGenerator) GenerateEmail(ctx context.Context, prompt string, vars map[string]string) (*types.Email, error) {
	g.mu.Lock()
	g.calls = append(g.calls, vars)
	g.mu.Unlock()

	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if g.during != nil {
		g.once.Do(g.during)
	}
	if g.failFor[vars[PromptVarName]] {
		return nil, errGeneration
	}
	return &types.Email{Object: "Hello " + vars[PromptVarName], Body: "Dear " + vars[PromptVarName]}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// failingLeads rejects inserts after the first `allow` succeed
type failingLeads struct {
	*memory.Integration
	allow int
}

func (f *failingLeads) Insert(ctx context.Context, record types.Record) (types.RecordID, error) {
	if f.allow <= 0 {
		return "", &types.BackendError{Op: "insert", Status: 500, Err: errors.New("boom")}
	}
	f.allow--
	return f.Integration.Insert(ctx, record)
}

func seed(t *testing.T, leads *memory.Integration, contacts ...types.Contact) {
	t.Helper()
	_, err := CrawlAndStoreContacts(context.Background(), "https://example.com", staticExtractor(contacts), leads)
	require.NoError(t, err)
}

func firstContacts(t *testing.T, emails *memory.Integration, leadPageID types.RecordID) []types.Record {
	t.Helper()
	expr, err := filter.AllOf(
		filter.MustField(types.EmailRecipient, filter.Contains, leadPageID.String()),
		filter.MustField(types.EmailType, filter.Equals, types.EmailTypeFirstContact),
	)
	require.NoError(t, err)
	records, err := emails.Query(context.Background(), expr)
	require.NoError(t, err)
	return records
}

func TestCrawlAndStoreContacts(t *testing.T) {
	ctx := context.Background()
	leads := memory.New(types.RecordKindLead)
	extractor := staticExtractor{
		{Name: "A", Email: "a@x.com", Role: "PM"},
		{Name: "", Email: "", Role: ""},
	}

	ids, err := CrawlAndStoreContacts(ctx, "https://example.com/team", extractor, leads)
	require.NoError(t, err)
	require.Len(t, ids, 2)

	records, err := leads.Query(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := types.LeadFromRecord(records[0])
	assert.Equal(t, ids[0], first.PageID)
	assert.Equal(t, "A", first.Name)
	assert.Equal(t, "a@x.com", first.EmailAddress)
	assert.Equal(t, "PM", first.Profile)
	assert.Equal(t, types.ContactStatusNew, first.ContactStatus)
	assert.Nil(t, first.Linkedin)
	assert.Empty(t, first.Company)
	assert.Empty(t, first.Emails)

	second := types.LeadFromRecord(records[1])
	assert.Equal(t, ids[1], second.PageID)
	assert.Equal(t, "Unknown", second.Name)
	assert.Equal(t, "", second.EmailAddress)
	assert.Equal(t, "", second.Profile)
}

func TestCrawlFailsFast(t *testing.T) {
	leads := &failingLeads{Integration: memory.New(types.RecordKindLead), allow: 1}
	extractor := staticExtractor{{Name: "A"}, {Name: "B"}, {Name: "C"}}

	ids, err := CrawlAndStoreContacts(context.Background(), "https://example.com", extractor, leads)
	assert.True(t, types.IsBackendError(err))
	assert.Nil(t, ids)
	assert.EqualValues(t, 1, leads.Writes())
}

func TestDraftFirstContactIsIdempotent(t *testing.T) {
	ctx := context.Background()
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada Lovelace", Role: "Professor"})

	generator := &fakeGenerator{}
	drafter := NewDrafter(leads, emails, generator)

	first, err := drafter.DraftFirstContact(ctx, 1, "Mention the course.")
	require.NoError(t, err)
	require.True(t, first.Created)
	assert.Equal(t, "Hello Ada Lovelace", first.Email.Object)

	stored := firstContacts(t, emails, first.LeadID)
	require.Len(t, stored, 1)
	email := types.EmailFromRecord(stored[0])
	assert.Equal(t, first.EmailID, email.PageID)
	assert.Equal(t, "Dear Ada Lovelace", email.Text)
	assert.Equal(t, types.EmailStatusToBeSent, email.Status)
	assert.Equal(t, []types.Reference{{ID: first.LeadID.String()}}, email.Recipient)

	records, err := leads.Query(ctx, filter.MustField(types.LeadID, filter.Equals, 1))
	require.NoError(t, err)
	assert.Equal(t, []types.Reference{{ID: first.EmailID.String()}}, types.LeadFromRecord(records[0]).Emails)

	leadWrites, emailWrites := leads.Writes(), emails.Writes()

	second, err := drafter.DraftFirstContact(ctx, 1, "Mention the course.")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Nil(t, second.Email)
	assert.Equal(t, first.EmailID, second.EmailID)

	assert.Equal(t, leadWrites, leads.Writes())
	assert.Equal(t, emailWrites, emails.Writes())
	assert.Len(t, firstContacts(t, emails, first.LeadID), 1)
	assert.Equal(t, 1, generator.callCount())
}

func TestDraftFirstContactPromptVars(t *testing.T) {
	ctx := context.Background()
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada", Role: "CTO"}, types.Contact{Name: "Grace", Role: "Admiral"})

	records, err := leads.Query(ctx, filter.MustField(types.LeadID, filter.Equals, 2))
	require.NoError(t, err)
	require.NoError(t, leads.Update(ctx, records[0].ID(), types.Record{
		types.LeadCompany: []types.Reference{{ID: "company-1"}, {ID: "company-2"}},
	}))

	generator := &fakeGenerator{}
	drafter := NewDrafter(leads, emails, generator)

	_, err = drafter.DraftFirstContact(ctx, 1, "First")
	require.NoError(t, err)
	_, err = drafter.DraftFirstContact(ctx, 2, "Second")
	require.NoError(t, err)

	require.Len(t, generator.calls, 2)
	assert.Equal(t, map[string]string{
		PromptVarName:       "Ada",
		PromptVarProfile:    "CTO",
		PromptVarCompany:    DefaultCompany,
		PromptVarUserPrompt: "First",
	}, generator.calls[0])
	assert.Equal(t, "company-1, company-2", generator.calls[1][PromptVarCompany])
}

func TestDraftFirstContactMissingLead(t *testing.T) {
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})
	leadWrites := leads.Writes()

	generator := &fakeGenerator{}
	_, err := NewDrafter(leads, emails, generator).DraftFirstContact(context.Background(), 42, "hi")
	require.True(t, types.IsNotFound(err))
	assert.Equal(t, "lead not found: 42", err.Error())

	assert.Equal(t, leadWrites, leads.Writes())
	assert.Zero(t, emails.Writes())
	assert.Zero(t, generator.callCount())
}

func TestDraftFirstContactGenerationError(t *testing.T) {
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})

	generator := &fakeGenerator{failFor: map[string]bool{"Ada": true}}
	_, err := NewDrafter(leads, emails, generator).DraftFirstContact(context.Background(), 1, "hi")
	assert.Same(t, errGeneration, err)
	assert.Zero(t, emails.Writes())
}

func TestDraftAllFirstContacts(t *testing.T) {
	ctx := context.Background()
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "One"}, types.Contact{Name: "Two"}, types.Contact{Name: "Three"})

	generator := &fakeGenerator{failFor: map[string]bool{"Two": true}}
	drafter := NewDrafter(leads, emails, generator)

	results, err := drafter.DraftAllFirstContacts(ctx, "hi")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Hello One", results[0].Email.Object)
	assert.Equal(t, "Hello Three", results[1].Email.Object)
	assert.Equal(t, 3, generator.callCount())

	// A second run only retries the lead that failed
	generator.failFor = nil
	results, err = drafter.DraftAllFirstContacts(ctx, "hi")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Hello Two", results[0].Email.Object)

	results, err = drafter.DraftAllFirstContacts(ctx, "hi")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestConcurrentDraftsCreateOneEmail(t *testing.T) {
	ctx := context.Background()
	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})

	generator := &fakeGenerator{delay: 20 * time.Millisecond}
	drafter := NewDrafter(leads, emails, generator)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := drafter.DraftFirstContact(ctx, 1, "hi")
			if assert.NoError(t, err) && result.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 1, emails.Writes())
	assert.Equal(t, 1, generator.callCount())
}

func TestConcurrentDraftsAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	config := types.RedisConfig{Addrs: []string{s.Addr()}, Mode: types.RedisModeSingle}

	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})
	generator := &fakeGenerator{delay: 20 * time.Millisecond}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		rdb, err := common.NewRedisClient(config)
		require.NoError(t, err)
		t.Cleanup(func() { rdb.Close() })

		drafter := NewDrafter(leads, emails, generator,
			WithLocker(common.NewRedisLock(rdb)),
			WithLockOptions(common.RedisLockOptions{TtlS: 10, Retries: 20}),
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := drafter.DraftFirstContact(ctx, 1, "hi")
			if assert.NoError(t, err) && result.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 1, emails.Writes())
	assert.False(t, s.Exists(common.Keys.DraftLock(firstLeadID(t, leads), types.EmailTypeFirstContact)))
}

func TestDraftOutlivesLockTTL(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	config := types.RedisConfig{Addrs: []string{s.Addr()}, Mode: types.RedisModeSingle}

	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})

	// Generation takes several lock lifetimes
	generator := &fakeGenerator{during: func() {
		for i := 0; i < 5; i++ {
			time.Sleep(100 * time.Millisecond)
			s.FastForward(700 * time.Millisecond)
		}
	}}

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		rdb, err := common.NewRedisClient(config)
		require.NoError(t, err)
		t.Cleanup(func() { rdb.Close() })

		drafter := NewDrafter(leads, emails, generator,
			WithLocker(common.NewRedisLock(rdb, common.WithRefreshInterval(50*time.Millisecond))),
			WithLockOptions(common.RedisLockOptions{TtlS: 1, Retries: 20}),
		)

		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := drafter.DraftFirstContact(ctx, 1, "hi")
			if assert.NoError(t, err) && result.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, 1, emails.Writes())
	assert.Equal(t, 1, generator.callCount())
	assert.False(t, s.Exists(common.Keys.DraftLock(firstLeadID(t, leads), types.EmailTypeFirstContact)))
}

func TestDraftAbortsWhenLockLost(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	rdb, err := common.NewRedisClient(types.RedisConfig{Addrs: []string{s.Addr()}, Mode: types.RedisModeSingle})
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	leads := memory.New(types.RecordKindLead)
	emails := memory.New(types.RecordKindEmail)
	seed(t, leads, types.Contact{Name: "Ada"})
	generator := &fakeGenerator{during: func() { s.FastForward(2 * time.Second) }}

	drafter := NewDrafter(leads, emails, generator,
		WithLocker(common.NewRedisLock(rdb, common.WithRefreshInterval(-1))),
		WithLockOptions(common.RedisLockOptions{TtlS: 1}),
	)

	_, err = drafter.DraftFirstContact(ctx, 1, "hi")
	require.Error(t, err)
	assert.True(t, types.IsLockError(err))
	assert.EqualValues(t, 0, emails.Writes())
}

func firstLeadID(t *testing.T, leads *memory.Integration) string {
	records, err := leads.Query(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	return records[0].ID().String()
}

func TestFirstContactPrompt(t *testing.T) {
	for _, name := range []string{PromptVarName, PromptVarProfile, PromptVarCompany, PromptVarUserPrompt} {
		assert.True(t, strings.Contains(FirstContactPrompt, "{"+name+"}"), name)
	}
}
