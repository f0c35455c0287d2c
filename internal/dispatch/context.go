package dispatch

import (
	"github.com/corpola/bulkmail/internal/directory"
	"github.com/corpola/bulkmail/internal/inlineimage"
)

// extraPrefix namespaces caller-supplied context variables so they can
// never shadow the built-in ones.
const extraPrefix = "var_"

// BuildContext assembles the per-recipient variable context a template is
// rendered against. Inline image content IDs are mapped to themselves so a
// template can write src="cid:{{.header}}" and have it resolve to the cid
// token the transport embeds the image under.
func BuildContext(job *Job, rec directory.Recipient, sender directory.SenderIdentity, images []inlineimage.Image) map[string]string {
	ctx := map[string]string{
		"company_name":  rec.CompanyName,
		"contact_email": rec.ContactEmail,
		"message":       job.Message,
		"sender_name":   sender.Name,
		"sender_email":  sender.Email,
	}
	for k, v := range job.Extra {
		ctx[extraPrefix+k] = v
	}
	for _, img := range images {
		ctx[img.ContentID] = img.ContentID
	}
	return ctx
}
