package workflows

import (
	"context"
	"fmt"

	"github.com/beam-cloud/onleads/pkg/integrations"
	"github.com/beam-cloud/onleads/pkg/schema"
	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/rs/zerolog/log"
)

// CrawlAndStoreContacts extracts the contacts of a page and inserts one lead per
// contact, in order. The first failed insert aborts the run.
func CrawlAndStoreContacts(ctx context.Context, url string, extractor ContactExtractor, leads integrations.Integration) ([]types.RecordID, error) {
	contacts, err := extractor.ExtractContacts(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extract contacts from %s: %w", url, err)
	}

	ids := make([]types.RecordID, 0, len(contacts))
	for _, contact := range contacts {
		record := types.NewLeadFromContact(contact).ToRecord()
		if err := schema.Validate(types.RecordKindLead, record); err != nil {
			return nil, err
		}

		id, err := leads.Insert(ctx, record)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	log.Info().Str("url", url).Int("leads", len(ids)).Msg("stored contacts")
	return ids, nil
}
