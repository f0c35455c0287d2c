package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActiveRecipients_FiltersAndPreservesOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	acme := &Recipient{CompanyName: "Acme", ContactEmail: "ops@acme.test", Active: true}
	globex := &Recipient{CompanyName: "Globex", ContactEmail: "it@globex.test", Active: false}
	initech := &Recipient{CompanyName: "Initech", ContactEmail: "admin@initech.test", Active: true}
	require.NoError(t, repo.CreateRecipient(ctx, acme))
	require.NoError(t, repo.CreateRecipient(ctx, globex))
	require.NoError(t, repo.CreateRecipient(ctx, initech))

	// Inactive and unknown IDs are dropped, request order kept.
	out, err := repo.ListActiveRecipients(ctx, []int64{initech.ID, globex.ID, 999, acme.ID})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Initech", out[0].CompanyName)
	assert.Equal(t, "Acme", out[1].CompanyName)
}

func TestGetRecipient_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetRecipient(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestGetSender(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	s := &SenderIdentity{Name: "Corpola IT", Email: "no-reply@corpola.com"}
	require.NoError(t, repo.CreateSender(ctx, s))

	got, err := repo.GetSender(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corpola IT", got.Name)
	assert.Equal(t, "no-reply@corpola.com", got.Email)

	_, err = repo.GetSender(ctx, 999)
	assert.ErrorIs(t, err, ErrSenderNotFound)
}
