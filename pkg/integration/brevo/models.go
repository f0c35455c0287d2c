package brevo

// EmailAddress represents an email address with an optional name.
type EmailAddress struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// TransactionalEmail represents a transactional email to be sent.
type TransactionalEmail struct {
	To          []EmailAddress
	Subject     string
	HTMLContent string
	TextContent string
	Sender      *EmailAddress
	ReplyTo     *EmailAddress
	// InlineImages are embedded images the HTML body references by
	// cid:<content-id>.
	InlineImages []InlineImage
	Attachments  []Attachment
	Headers      map[string]string
	Tags         []string
}

// InlineImage is an image embedded in the HTML body.
type InlineImage struct {
	ContentID string // token the body references via cid:
	Filename  string
	Content   []byte
}

// Attachment represents a named file attachment.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}
