package clients

import (
	"context"
	"fmt"

	"github.com/beam-cloud/onleads/pkg/types"
	"github.com/rs/zerolog/log"
)

const DefaultMaxChunkLength = 30000

const extractionPrompt = `
Extract contact information including name, email, and role/position of people from the following web page content: {content}
`

// Scraper fetches the readable content of a web page
type Scraper interface {
	Scrape(ctx context.Context, url string) (string, error)
}

var contactListSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"leads": map[string]any{
			"type":        "array",
			"description": "List of contact records",
			"items": objectSchema(map[string]string{
				"name":  "Full name of the person",
				"email": "Email address",
				"role":  "Role or position of the person",
			}, "name", "email", "role"),
		},
	},
	"required":             []string{"leads"},
	"additionalProperties": false,
}

type contactList struct {
	Leads []types.Contact `json:"leads"`
}

// ContactCrawler scrapes a page and extracts the people it mentions
type ContactCrawler struct {
	scraper        Scraper
	model          Completer
	maxChunkLength int
}

func NewContactCrawler(scraper Scraper, model Completer, maxChunkLength int) *ContactCrawler {
	if maxChunkLength <= 0 {
		maxChunkLength = DefaultMaxChunkLength
	}
	return &ContactCrawler{
		scraper:        scraper,
		model:          model,
		maxChunkLength: maxChunkLength,
	}
}

// ExtractContacts runs one extraction per chunk of the page and concatenates the
// results in page order
func (c *ContactCrawler) ExtractContacts(ctx context.Context, url string) ([]types.Contact, error) {
	content, err := c.scraper.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	chunks := SplitText(content, c.maxChunkLength)
	log.Debug().Str("url", url).Int("chunks", len(chunks)).Msg("extracting contacts")

	contacts := []types.Contact{}
	for i, chunk := range chunks {
		prompt := RenderPrompt(extractionPrompt, map[string]string{"content": chunk})

		var result contactList
		if err := c.model.Complete(ctx, prompt, "LeadList", contactListSchema, &result); err != nil {
			return nil, fmt.Errorf("extract chunk %d: %w", i, err)
		}
		contacts = append(contacts, result.Leads...)
	}

	return contacts, nil
}

// SplitText cuts text into consecutive pieces of at most maxLength characters
func SplitText(text string, maxLength int) []string {
	if maxLength <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/maxLength+1)
	for start := 0; start < len(runes); start += maxLength {
		end := start + maxLength
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
