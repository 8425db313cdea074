package workflows

// Template variables of FirstContactPrompt
const (
	PromptVarName       = "name"
	PromptVarProfile    = "profile"
	PromptVarCompany    = "company"
	PromptVarUserPrompt = "user_prmpt"
)

// Company placeholder used when a lead is not linked to any company
const DefaultCompany = "General"

const FirstContactPrompt = `
Write an email based on the example below to start a conversation with {name},
a person with this profile: {profile}, working at {company}.

In the beginning of the email write only the last name and not in uppercase, only capital initials.
If the subject they teach is not present, stay more general and of that the project can be useful both for courses, research, analyzing documents, videos, audio, etc.

You must return in the required format email subject and text. The text must be ready to be sent so already filled in. The email details below are correct, I would say just fill it in.

{user_prmpt}
`
