package dispatch

import (
	"context"

	"github.com/corpola/bulkmail/internal/attachment"
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/inlineimage"
	"github.com/corpola/bulkmail/pkg/integration/brevo"
)

// plainTextFallback is the text/plain alternative sent alongside the HTML
// body for clients that cannot render HTML.
const plainTextFallback = "Please view this email in an HTML compatible client."

// Email is one fully assembled outgoing message.
type Email struct {
	To           directory.Recipient
	Sender       directory.SenderIdentity
	Subject      string
	HTMLBody     string
	InlineImages []inlineimage.Image
	Attachments  []attachment.Loaded
}

// Transport delivers assembled emails. Implementations return the provider
// message ID on success.
type Transport interface {
	Deliver(ctx context.Context, email *Email) (string, error)
}

// BrevoTransport delivers through the Brevo transactional email API.
type BrevoTransport struct {
	client *brevo.Client
}

// NewBrevoTransport wraps a Brevo client as a Transport.
func NewBrevoTransport(client *brevo.Client) *BrevoTransport {
	return &BrevoTransport{client: client}
}

// Deliver sends one email.
func (t *BrevoTransport) Deliver(ctx context.Context, email *Email) (string, error) {
	msg := &brevo.TransactionalEmail{
		To:          []brevo.EmailAddress{{Name: email.To.CompanyName, Email: email.To.ContactEmail}},
		Sender:      &brevo.EmailAddress{Name: email.Sender.Name, Email: email.Sender.Email},
		Subject:     email.Subject,
		HTMLContent: email.HTMLBody,
		TextContent: plainTextFallback,
	}

	for _, img := range email.InlineImages {
		msg.InlineImages = append(msg.InlineImages, brevo.InlineImage{
			ContentID: img.ContentID,
			Filename:  img.Filename,
			Content:   img.Content,
		})
	}
	for _, a := range email.Attachments {
		msg.Attachments = append(msg.Attachments, brevo.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}

	return t.client.SendTransactionalEmail(ctx, msg)
}
