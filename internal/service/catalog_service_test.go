package service

import (
	"context"
	"errors"
	"testing"

	"furniture-erp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProducts(t *testing.T, e *testEnv, skus ...string) {
	t.Helper()
	for _, sku := range skus {
		_, err := e.catalog.Create(context.Background(), &ProductInput{
			SKU:       sku,
			Name:      "Produto " + sku,
			BasePrice: money("100"),
		})
		require.NoError(t, err)
	}
}

func TestCatalogPage_WalksEveryProductOnce(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100", "CB-101", "CB-102", "MT-200", "AC-300")

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := e.catalog.Page(context.Background(), cursor)
		require.NoError(t, err)
		pages++
		assert.Equal(t, 5, page.TotalCount)
		assert.Equal(t, 3, page.TotalPages)
		for _, p := range page.Products {
			assert.False(t, seen[p.SKU], "duplicate %s", p.SKU)
			seen[p.SKU] = true
		}
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)
}

func TestCatalogPage_NewestFirst(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100", "CB-101", "CB-102")

	page, err := e.catalog.Page(context.Background(), "")

	require.NoError(t, err)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "CB-102", page.Products[0].SKU)
	assert.Equal(t, "CB-101", page.Products[1].SKU)
}

func TestCatalogPage_FirstPageIsCachedUntilCatalogChanges(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100", "CB-101")

	_, err := e.catalog.Page(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0, e.cache.hits)

	cached, err := e.catalog.Page(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)
	assert.Equal(t, "CB-101", cached.Products[0].SKU)

	seedProducts(t, e, "CB-103")

	fresh, err := e.catalog.Page(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)
	assert.Equal(t, "CB-103", fresh.Products[0].SKU)
	assert.Equal(t, 3, fresh.TotalCount)
}

func TestCatalogPage_MalformedCursor(t *testing.T) {
	e := newTestEnv()

	for _, cursor := range []string{"%%%", "bm9waXBl", EncodeCursor(models.Product{})[:4]} {
		_, err := e.catalog.Page(context.Background(), cursor)
		assert.True(t, errors.Is(err, ErrValidation), cursor)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	p := models.Product{ID: "abc", CreatedAt: testNow}

	c, err := DecodeCursor(EncodeCursor(p))

	require.NoError(t, err)
	assert.Equal(t, "abc", c.ID)
	assert.True(t, testNow.Equal(c.CreatedAt))
}

func TestCatalogSearch(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100", "CB-101", "MT-200")

	page, err := e.catalog.Search(context.Background(), "  CB-10 ")
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
	assert.False(t, page.HasMore)
	assert.Equal(t, 1, page.TotalPages)

	_, err = e.catalog.Search(context.Background(), "cb-10")
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)

	none, err := e.catalog.Search(context.Background(), "zz")
	require.NoError(t, err)
	assert.Empty(t, none.Products)

	blank, err := e.catalog.Search(context.Background(), " ")
	require.NoError(t, err)
	assert.True(t, blank.HasMore)
	assert.Len(t, blank.Products, 2)
}

func TestCatalogCreate_DefaultsAndEvents(t *testing.T) {
	e := newTestEnv()

	p, err := e.catalog.Create(context.Background(), &ProductInput{SKU: " CB-100 ", Name: "Cama Box"})

	require.NoError(t, err)
	assert.Equal(t, "CB-100", p.SKU)
	assert.Equal(t, models.CategoryBed, p.Category)
	assert.Equal(t, models.ProductStatusActive, p.Status)
	assert.NotNil(t, p.CustomerPrices)
	assert.Equal(t, int64(1), e.cache.version)
	assert.Equal(t, []string{"CB-100:created"}, e.publisher.products)
}

func TestCatalogCreate_Validation(t *testing.T) {
	e := newTestEnv()

	_, err := e.catalog.Create(context.Background(), &ProductInput{SKU: "CB-100"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = e.catalog.Create(context.Background(), &ProductInput{SKU: "CB-100", Name: "x", BasePrice: money("-1")})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCatalogCreate_DuplicateSKUConflicts(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100")

	_, err := e.catalog.Create(context.Background(), &ProductInput{SKU: "cb-100", Name: "Outra"})

	assert.True(t, errors.Is(err, ErrConflict))
}

func TestCatalogUpdateAndDelete(t *testing.T) {
	e := newTestEnv()
	seedProducts(t, e, "CB-100")
	p, ok := e.store.productBySKU("CB-100")
	require.True(t, ok)

	updated, err := e.catalog.Update(context.Background(), p.ID, &ProductInput{SKU: "CB-100", Name: "Cama Box Luxo", Category: models.CategoryMattress})
	require.NoError(t, err)
	assert.Equal(t, "Cama Box Luxo", updated.Name)
	assert.Equal(t, models.CategoryMattress, updated.Category)

	require.NoError(t, e.catalog.Delete(context.Background(), p.ID))
	_, err = e.catalog.Get(context.Background(), p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = e.catalog.Delete(context.Background(), p.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, []string{"CB-100:created", "CB-100:updated", "CB-100:deleted"}, e.publisher.products)
	assert.Equal(t, int64(3), e.cache.version)
}
