package inlineimage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpola/bulkmail/internal/catalog"
)

type fakeFetcher struct {
	blobs map[string][]byte
	calls []string
}

func (f *fakeFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	f.calls = append(f.calls, url)
	content, ok := f.blobs[url]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return content, nil
}

func seedCatalog(t *testing.T) *catalog.MemoryRepository {
	t.Helper()
	repo := catalog.NewMemoryRepository()
	mt := &catalog.MailType{ID: 1, Name: "newsletter"}
	require.NoError(t, repo.CreateMailType(context.Background(), mt))
	return repo
}

func TestResolve_FetchesActiveImagesInOrder(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateInlineImage(ctx, &catalog.InlineImage{
		MailTypeID: 1, ContentID: "footer", BlobURL: "https://cdn/footer.png", DisplayOrder: 2,
	}))
	require.NoError(t, repo.CreateInlineImage(ctx, &catalog.InlineImage{
		MailTypeID: 1, ContentID: "header", BlobURL: "https://cdn/header.png", DisplayOrder: 1,
	}))

	fetcher := &fakeFetcher{blobs: map[string][]byte{
		"https://cdn/header.png": []byte("header-bytes"),
		"https://cdn/footer.png": []byte("footer-bytes"),
	}}
	r := NewResolver(repo, fetcher, nil, nil)

	images, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, "header", images[0].ContentID)
	assert.Equal(t, "header.png", images[0].Filename)
	assert.Equal(t, []byte("header-bytes"), images[0].Content)
	assert.Equal(t, "footer", images[1].ContentID)
}

func TestResolve_FetchFailureIsFatal(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateInlineImage(ctx, &catalog.InlineImage{
		MailTypeID: 1, ContentID: "header", BlobURL: "https://cdn/missing.png",
	}))

	r := NewResolver(repo, &fakeFetcher{blobs: map[string][]byte{}}, nil, nil)

	_, err := r.Resolve(ctx, 1)
	require.Error(t, err)

	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "header", ferr.ContentID)
}

func TestResolve_ReplacedImageUsesNewBlob(t *testing.T) {
	repo := seedCatalog(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateInlineImage(ctx, &catalog.InlineImage{
		MailTypeID: 1, ContentID: "header", BlobURL: "https://cdn/header-v1.png",
	}))
	_, err := repo.ReplaceInlineImage(ctx, 1, "header", "https://cdn/header-v2.png")
	require.NoError(t, err)

	fetcher := &fakeFetcher{blobs: map[string][]byte{
		"https://cdn/header-v2.png": []byte("v2"),
	}}
	r := NewResolver(repo, fetcher, nil, nil)

	images, err := r.Resolve(ctx, 1)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, []byte("v2"), images[0].Content)
	assert.Equal(t, []string{"https://cdn/header-v2.png"}, fetcher.calls)
}

func TestResolve_NoImages(t *testing.T) {
	repo := seedCatalog(t)
	r := NewResolver(repo, &fakeFetcher{}, nil, nil)

	images, err := r.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, images)
}
