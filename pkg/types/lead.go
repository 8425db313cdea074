package types

// Lead field names
const (
	LeadID            = "ID"
	LeadName          = "Name"
	LeadEmailAddress  = "Email_Address"
	LeadProfile       = "Profile"
	LeadContactStatus = "Contact_Status"
	LeadLinkedin      = "Linkedin"
	LeadCompany       = "Company"
	LeadEmails        = "Emails"

	// Optional columns, never written by the crawler
	LeadScore         = "Score"
	LeadTags          = "Tags"
	LeadLastContacted = "Last_Contacted"
	LeadUnsubscribed  = "Unsubscribed"
)

const (
	ContactStatusNew = "New"

	// Defaults applied when a scraped contact is missing a value
	UnknownContactName = "Unknown"
)

// Contact is one tuple extracted from a web page. Any field may be empty.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LeadRecord is the typed form of a lead. Number is the backend generated
// sequential ID and is never written.
type LeadRecord struct {
	PageID        RecordID
	Number        int64
	Name          string
	EmailAddress  string
	Profile       string
	ContactStatus string
	Linkedin      *string
	Company       []Reference
	Emails        []Reference
}

// NewLeadFromContact builds a fresh lead applying the ingestion defaults
func NewLeadFromContact(c Contact) LeadRecord {
	name := c.Name
	if name == "" {
		name = UnknownContactName
	}
	return LeadRecord{
		Name:          name,
		EmailAddress:  c.Email,
		Profile:       c.Role,
		ContactStatus: ContactStatusNew,
		Linkedin:      nil,
		Company:       []Reference{},
		Emails:        []Reference{},
	}
}

// ToRecord returns the writable fields. Linkedin is kept as an explicit nil so the
// backend clears the URL rather than omitting it.
func (l LeadRecord) ToRecord() Record {
	rec := Record{
		LeadName:          l.Name,
		LeadEmailAddress:  l.EmailAddress,
		LeadProfile:       l.Profile,
		LeadContactStatus: l.ContactStatus,
		LeadCompany:       nonNilRefs(l.Company),
		LeadEmails:        nonNilRefs(l.Emails),
	}
	if l.Linkedin != nil {
		rec[LeadLinkedin] = *l.Linkedin
	} else {
		rec[LeadLinkedin] = nil
	}
	return rec
}

// LeadFromRecord reads a lead returned by a backend query
func LeadFromRecord(r Record) LeadRecord {
	lead := LeadRecord{
		PageID:        r.ID(),
		Name:          r.String(LeadName),
		EmailAddress:  r.String(LeadEmailAddress),
		Profile:       r.String(LeadProfile),
		ContactStatus: r.String(LeadContactStatus),
		Company:       r.References(LeadCompany),
		Emails:        r.References(LeadEmails),
	}
	if n, ok := r.Int64(LeadID); ok {
		lead.Number = n
	}
	if v, ok := r[LeadLinkedin].(string); ok {
		lead.Linkedin = &v
	}
	return lead
}

func nonNilRefs(refs []Reference) []Reference {
	if refs == nil {
		return []Reference{}
	}
	return refs
}
