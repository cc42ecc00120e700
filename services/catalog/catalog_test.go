package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/Rohit420bhainwal/book-my-event-api/testutil"
	"github.com/Rohit420bhainwal/book-my-event-api/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCatalog() (*DefaultCatalogService, *testutil.BlobStore) {
	blobs := testutil.NewBlobStore()
	return NewCatalogService(testutil.NewCatalogRepo(), blobs, zap.NewNop(), "usd", []string{"usd", "eur"}), blobs
}

func TestCreateListing(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()

	l, err := svc.Create(ctx, "prov-1", CreateListingRequest{Name: " Wedding DJ ", Category: "Music", Price: 999.999})
	require.NoError(t, err)
	assert.Equal(t, "Wedding DJ", l.Name)
	assert.Equal(t, "music", l.Category)
	assert.Equal(t, 1000.0, l.Price)
	assert.Equal(t, "usd", l.Currency)
	assert.True(t, l.Active)

	got, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)

	_, err = svc.Create(ctx, "prov-1", CreateListingRequest{Name: "x", Category: "c", Price: 10, Currency: "GBP"})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	_, err = svc.Create(ctx, "prov-1", CreateListingRequest{Name: "x", Category: "c", Price: 0})
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))
}

func TestImageGallery(t *testing.T) {
	svc, blobs := newCatalog()
	ctx := context.Background()
	l, err := svc.Create(ctx, "prov-1", CreateListingRequest{Name: "Wedding DJ", Category: "music", Price: 500})
	require.NoError(t, err)

	withImg, err := svc.AddImage(ctx, "prov-1", l.ID, strings.NewReader("png-bytes"), "booth.png")
	require.NoError(t, err)
	require.Len(t, withImg.Images, 1)
	name := withImg.Images[0]
	assert.True(t, blobs.Has(name))

	_, err = svc.AddImage(ctx, "prov-2", l.ID, strings.NewReader("x"), "x.png")
	assert.Equal(t, utils.KindAuthorization, utils.KindOf(err))

	_, err = svc.RemoveImage(ctx, "prov-1", l.ID, "listings/other.png")
	assert.Equal(t, utils.KindNotFound, utils.KindOf(err))

	after, err := svc.RemoveImage(ctx, "prov-1", l.ID, name)
	require.NoError(t, err)
	assert.Empty(t, after.Images)
	assert.False(t, blobs.Has(name))

	stored, err := svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Images)
}

func TestImageLimit(t *testing.T) {
	svc, _ := newCatalog()
	ctx := context.Background()
	l, err := svc.Create(ctx, "prov-1", CreateListingRequest{Name: "Photo booth", Category: "photo", Price: 200})
	require.NoError(t, err)

	for i := 0; i < MaxImagesPerListing; i++ {
		_, err := svc.AddImage(ctx, "prov-1", l.ID, strings.NewReader("img"), "img.jpg")
		require.NoError(t, err)
	}
	_, err = svc.AddImage(ctx, "prov-1", l.ID, strings.NewReader("img"), "img.jpg")
	assert.Equal(t, utils.KindValidation, utils.KindOf(err))
}
