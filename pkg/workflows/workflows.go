// Package workflows implements lead ingestion and first-contact drafting on top of
// the record integrations.
package workflows

import (
	"context"

	"github.com/beam-cloud/onleads/pkg/types"
)

// ContactExtractor returns the contacts found on a web page
type ContactExtractor interface {
	ExtractContacts(ctx context.Context, url string) ([]types.Contact, error)
}

// EmailGenerator writes an email from a prompt template and its variables
type EmailGenerator interface {
	GenerateEmail(ctx context.Context, prompt string, vars map[string]string) (*types.Email, error)
}
