package brevo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestSendTransactionalEmail(t *testing.T) {
	var captured sendEmailRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/smtp/email", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		err := json.NewDecoder(r.Body).Decode(&captured)
		require.NoError(t, err)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(sendEmailResponse{MessageID: "msg-1"})
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		APIKey:        "test-key",
		BaseURL:       srv.URL,
		DefaultSender: EmailAddress{Name: "Default", Email: "default@example.com"},
	})
	require.NoError(t, err)

	msgID, err := client.SendTransactionalEmail(context.Background(), &TransactionalEmail{
		To:          []EmailAddress{{Email: "to@example.com"}},
		Subject:     "Hello",
		HTMLContent: `<p><img src="cid:header"></p>`,
		TextContent: "Hello",
		InlineImages: []InlineImage{
			{ContentID: "header", Filename: "header.png", Content: []byte{1, 2, 3}},
		},
		Attachments: []Attachment{
			{Filename: "report.pdf", Content: []byte("pdf"), ContentType: "application/pdf"},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-1", msgID)

	// Default sender applied when none given
	require.NotNil(t, captured.Sender)
	assert.Equal(t, "default@example.com", captured.Sender.Email)

	// Inline image carried first, named by its cid token, base64-encoded
	require.Len(t, captured.Attachment, 2)
	assert.Equal(t, "header", captured.Attachment[0].Name)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{1, 2, 3}), captured.Attachment[0].Content)
	assert.Equal(t, "report.pdf", captured.Attachment[1].Name)
}

func TestSendTransactionalEmail_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid sender"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.SendTransactionalEmail(context.Background(), &TransactionalEmail{
		To:      []EmailAddress{{Email: "to@example.com"}},
		Subject: "Hello",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}
