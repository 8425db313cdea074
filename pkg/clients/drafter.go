package clients

import (
	"context"
	"sort"
	"strings"

	"github.com/beam-cloud/onleads/pkg/types"
)

const readyToSendInstructions = "\nCreate a complete, ready-to-send email. Do not include any placeholders or template variables. The email should be immediately usable without any modifications."

var emailSchema = objectSchema(map[string]string{
	"object": "Object of the email",
	"body":   "Body of the email",
}, "object", "body")

// EmailDrafter generates a subject and body from a templated prompt
type EmailDrafter struct {
	model Completer
}

func NewEmailDrafter(model Completer) *EmailDrafter {
	return &EmailDrafter{model: model}
}

func (d *EmailDrafter) GenerateEmail(ctx context.Context, prompt string, vars map[string]string) (*types.Email, error) {
	rendered := RenderPrompt(prompt+readyToSendInstructions, vars)

	var email types.Email
	if err := d.model.Complete(ctx, rendered, "Email", emailSchema, &email); err != nil {
		return nil, err
	}
	return &email, nil
}

// RenderPrompt substitutes {name} placeholders. Placeholders without a value are
// left as they are.
func RenderPrompt(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(vars)*2)
	for _, name := range names {
		pairs = append(pairs, "{"+name+"}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
