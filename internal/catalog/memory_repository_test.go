package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMailType(t *testing.T, repo *MemoryRepository) *MailType {
	t.Helper()
	mt := &MailType{Name: "welcome"}
	require.NoError(t, repo.CreateMailType(context.Background(), mt))
	return mt
}

func TestCreateTemplate_FirstVersionIsActive(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)

	tmpl := &Template{MailTypeID: mt.ID, Subject: "Welcome", Content: "Hello {{.company_name}}"}
	require.NoError(t, repo.CreateTemplate(context.Background(), tmpl))

	assert.Equal(t, 1, tmpl.Version)
	assert.True(t, tmpl.Active)

	active, err := repo.ActiveTemplate(context.Background(), mt.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, active.ID)
}

func TestCreateTemplate_RejectsSecondActive(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)

	require.NoError(t, repo.CreateTemplate(context.Background(), &Template{MailTypeID: mt.ID, Content: "v1"}))
	err := repo.CreateTemplate(context.Background(), &Template{MailTypeID: mt.ID, Content: "v2"})
	assert.Error(t, err)
}

func TestUpdateTemplate_AppendsVersionAndPreservesPrior(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)
	ctx := context.Background()

	first := &Template{MailTypeID: mt.ID, Subject: "Welcome", Content: "Hello {{.company_name}}"}
	require.NoError(t, repo.CreateTemplate(ctx, first))

	second, err := repo.UpdateTemplate(ctx, mt.ID, "Welcome!", "Hi {{.company_name}}", []string{"company_name"})
	require.NoError(t, err)

	assert.Equal(t, 2, second.Version)
	assert.True(t, second.Active)
	assert.NotEqual(t, first.ID, second.ID)

	// The prior version is unchanged apart from being deactivated.
	prior, err := repo.GetTemplate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello {{.company_name}}", prior.Content)
	assert.Equal(t, "Welcome", prior.Subject)
	assert.False(t, prior.Active)

	// Exactly one active version remains.
	active, err := repo.ActiveTemplate(ctx, mt.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestActiveTemplate_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)

	_, err := repo.ActiveTemplate(context.Background(), mt.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestActiveInlineImages_OrderedAndFiltered(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)
	ctx := context.Background()

	require.NoError(t, repo.CreateInlineImage(ctx, &InlineImage{
		MailTypeID: mt.ID, ContentID: "footer", BlobURL: "https://cdn/footer.png", DisplayOrder: 2,
	}))
	require.NoError(t, repo.CreateInlineImage(ctx, &InlineImage{
		MailTypeID: mt.ID, ContentID: "header", BlobURL: "https://cdn/header.png", DisplayOrder: 1,
	}))
	require.NoError(t, repo.CreateInlineImage(ctx, &InlineImage{
		MailTypeID: mt.ID, ContentID: "banner", BlobURL: "https://cdn/banner.png", DisplayOrder: 1,
	}))

	// Replacing "footer" twice leaves only the newest version active.
	_, err := repo.ReplaceInlineImage(ctx, mt.ID, "footer", "https://cdn/footer-v2.png")
	require.NoError(t, err)

	images, err := repo.ActiveInlineImages(ctx, mt.ID)
	require.NoError(t, err)
	require.Len(t, images, 3)

	// display order first, then content id
	assert.Equal(t, "banner", images[0].ContentID)
	assert.Equal(t, "header", images[1].ContentID)
	assert.Equal(t, "footer", images[2].ContentID)
	assert.Equal(t, 2, images[2].Version)
	assert.Equal(t, "https://cdn/footer-v2.png", images[2].BlobURL)
}

func TestReplaceInlineImage_RequiresExistingActive(t *testing.T) {
	repo := NewMemoryRepository()
	mt := seedMailType(t, repo)

	_, err := repo.ReplaceInlineImage(context.Background(), mt.ID, "header", "https://cdn/x.png")
	assert.ErrorIs(t, err, ErrImageNotFound)
}
