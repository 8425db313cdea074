package types

// Email field names
const (
	EmailObject    = "Object"
	EmailText      = "Text"
	EmailType      = "Type"
	EmailRecipient = "Recipient"
	EmailStatus    = "Email_Status"
)

const (
	EmailTypeFirstContact = "first_contact"
	EmailStatusToBeSent   = "to_be_sent"
)

// Email is a generated subject and body pair
type Email struct {
	Object string `json:"object"`
	Body   string `json:"body"`
}

// EmailRecord is the typed form of a stored email
type EmailRecord struct {
	PageID    RecordID
	Object    string
	Text      string
	Type      string
	Recipient []Reference
	Status    string
}

// NewFirstContactEmail links a generated email to the lead it is addressed to
func NewFirstContactEmail(email *Email, leadPageID RecordID) EmailRecord {
	return EmailRecord{
		Object:    email.Object,
		Text:      email.Body,
		Type:      EmailTypeFirstContact,
		Recipient: []Reference{{ID: string(leadPageID)}},
		Status:    EmailStatusToBeSent,
	}
}

func (e EmailRecord) ToRecord() Record {
	return Record{
		EmailObject:    e.Object,
		EmailText:      e.Text,
		EmailType:      e.Type,
		EmailRecipient: nonNilRefs(e.Recipient),
		EmailStatus:    e.Status,
	}
}

func EmailFromRecord(r Record) EmailRecord {
	return EmailRecord{
		PageID:    r.ID(),
		Object:    r.String(EmailObject),
		Text:      r.String(EmailText),
		Type:      r.String(EmailType),
		Recipient: r.References(EmailRecipient),
		Status:    r.String(EmailStatus),
	}
}
