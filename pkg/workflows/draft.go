package workflows

import (
	"context"
	"strconv"
	"strings"

	"github.com/beam-cloud/onleads/pkg/common"
	"github.com/beam-cloud/onleads/pkg/filter"
	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/rs/zerolog/log"
)

// DraftResult is the outcome of drafting for one lead. Created is false when a
// first-contact email already existed, in which case Email is nil and EmailID
// points at the existing email.
type DraftResult struct {
	Email   *types.Email
	EmailID types.RecordID
	LeadID  types.RecordID
	Created bool
}

// Drafter creates at most one first-contact email per lead
type Drafter struct {
	leads     integrations.Integration
	emails    integrations.Integration
	generator EmailGenerator
	locker    common.Locker
	lockOpts  common.RedisLockOptions
}

type DrafterOption func(*Drafter)

// WithLocker replaces the in-process lock, e.g. with a common.RedisLock shared by
// several processes
func WithLocker(locker common.Locker) DrafterOption {
	return func(d *Drafter) { d.locker = locker }
}

func WithLockOptions(opts common.RedisLockOptions) DrafterOption {
	return func(d *Drafter) { d.lockOpts = opts }
}

func NewDrafter(leads, emails integrations.Integration, generator EmailGenerator, opts ...DrafterOption) *Drafter {
	d := &Drafter{
		leads:     leads,
		emails:    emails,
		generator: generator,
		locker:    common.NewLocalLock(),
		lockOpts:  common.RedisLockOptions{TtlS: 120, Retries: 240},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DraftFirstContact generates and stores the first-contact email of a lead unless
// one already exists. The existence check, insert and link run under a lock keyed
// by lead and email type.
func (d *Drafter) DraftFirstContact(ctx context.Context, leadID int64, userPrompt string) (*DraftResult, error) {
	lead, err := d.findLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	lockKey := common.Keys.DraftLock(lead.PageID.String(), types.EmailTypeFirstContact)
	lease, err := d.locker.Acquire(ctx, lockKey, d.lockOpts)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			log.Error().Str("lock_key", lockKey).Err(err).Msg("failed to release draft lock")
		}
	}()

	existing, found, err := d.findFirstContact(ctx, lead.PageID)
	if err != nil {
		return nil, err
	}
	if found {
		log.Info().Int64("lead", leadID).Str("email_id", existing.String()).Msg("first contact already drafted")
		return &DraftResult{EmailID: existing, LeadID: lead.PageID}, nil
	}

	email, err := d.generator.GenerateEmail(ctx, FirstContactPrompt, promptVars(lead, userPrompt))
	if err != nil {
		return nil, err
	}

	record := types.NewFirstContactEmail(email, lead.PageID).ToRecord()
	if err := schema.Validate(types.RecordKindEmail, record); err != nil {
		return nil, err
	}

	// Another drafter may own the key once it has been lost
	if err := lease.Held(ctx); err != nil {
		return nil, err
	}
	emailID, err := d.emails.Insert(ctx, record)
	if err != nil {
		return nil, err
	}

	current, err := d.findLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	linked := append(current.Emails, types.Reference{ID: emailID.String()})
	if err := d.leads.Update(ctx, lead.PageID, types.Record{types.LeadEmails: linked}); err != nil {
		return nil, err
	}

	log.Info().Int64("lead", leadID).Str("email_id", emailID.String()).Msg("drafted first contact")
	return &DraftResult{Email: email, EmailID: emailID, LeadID: lead.PageID, Created: true}, nil
}

// DraftAllFirstContacts drafts every lead in turn. A failure for one lead is logged
// and the run moves on; only newly created drafts are returned.
func (d *Drafter) DraftAllFirstContacts(ctx context.Context, userPrompt string) ([]*DraftResult, error) {
	records, err := d.leads.Query(ctx, nil)
	if err != nil {
		return nil, err
	}

	results := []*DraftResult{}
	for _, record := range records {
		lead := types.LeadFromRecord(record)
		if _, ok := record.Int64(types.LeadID); !ok {
			log.Error().Str("lead", lead.PageID.String()).Msg("lead has no ID, skipping")
			continue
		}

		result, err := d.DraftFirstContact(ctx, lead.Number, userPrompt)
		if err != nil {
			log.Error().Err(err).Str("lead", lead.PageID.String()).Msg("error drafting email for lead")
			continue
		}
		if result.Created {
			results = append(results, result)
		}
	}

	return results, nil
}

func (d *Drafter) findLead(ctx context.Context, leadID int64) (types.LeadRecord, error) {
	records, err := d.leads.Query(ctx, filter.MustField(types.LeadID, filter.Equals, leadID))
	if err != nil {
		return types.LeadRecord{}, err
	}
	if len(records) == 0 {
		return types.LeadRecord{}, &types.NotFoundError{Kind: types.RecordKindLead, ID: strconv.FormatInt(leadID, 10)}
	}
	if len(records) > 1 {
		log.Debug().Int64("lead", leadID).Int("matches", len(records)).Msg("several leads share an ID, using the first")
	}
	return types.LeadFromRecord(records[0]), nil
}

func (d *Drafter) findFirstContact(ctx context.Context, leadPageID types.RecordID) (types.RecordID, bool, error) {
	expr, err := filter.AllOf(
		filter.MustField(types.EmailRecipient, filter.Contains, leadPageID.String()),
		filter.MustField(types.EmailType, filter.Equals, types.EmailTypeFirstContact),
	)
	if err != nil {
		return "", false, err
	}

	records, err := d.emails.Query(ctx, expr)
	if err != nil {
		return "", false, err
	}
	if len(records) == 0 {
		return "", false, nil
	}
	return records[0].ID(), true, nil
}

func promptVars(lead types.LeadRecord, userPrompt string) map[string]string {
	company := DefaultCompany
	if len(lead.Company) > 0 {
		ids := make([]string, 0, len(lead.Company))
		for _, ref := range lead.Company {
			ids = append(ids, ref.ID)
		}
		company = strings.Join(ids, ", ")
	}

	return map[string]string{
		PromptVarName:       lead.Name,
		PromptVarProfile:    lead.Profile,
		PromptVarCompany:    company,
		PromptVarUserPrompt: userPrompt,
	}
}
