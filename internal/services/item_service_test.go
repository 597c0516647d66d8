package services

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kihaltung/attitude/internal/models"
)

type stubItemStore struct {
	rows []models.ItemRow
}

func (s *stubItemStore) ListItems(context.Context) ([]models.ItemRow, error) { return s.rows, nil }

func (s *stubItemStore) CreateItem(_ context.Context, it models.ItemRow) (int64, error) {
	it.ID = int64(len(s.rows) + 1)
	s.rows = append(s.rows, it)
	return it.ID, nil
}

func TestItemServiceCreate(t *testing.T) {
	store := &stubItemStore{}
	svc := NewItemService(store, nil)
	ctx := context.Background()

	it, err := svc.Create(ctx, CreateItemRequest{Text: "  KI motiviert  ", Category: "positive"})
	require.NoError(t, err)
	assert.Equal(t, "KI motiviert", it.Text)
	assert.Equal(t, CategoryPositive, it.Category)
	assert.Equal(t, "Positiv", store.rows[0].Category)

	_, err = svc.Create(ctx, CreateItemRequest{Text: "x", Category: "neutral"})
	assert.True(t, isCode(err, ErrorInvalid))
	_, err = svc.Create(ctx, CreateItemRequest{Text: " ", Category: "Negativ"})
	assert.True(t, isCode(err, ErrorInvalid))

	items, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSeedIsIdempotent(t *testing.T) {
	store := &stubItemStore{}
	svc := NewItemService(store, nil)
	ctx := context.Background()

	res, err := svc.Seed(ctx, nil)
	require.NoError(t, err)
	total := len(DefaultCatalog())
	assert.Equal(t, SeedResult{Created: total}, *res)

	res, err = svc.Seed(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{Skipped: total}, *res)
	assert.Len(t, store.rows, total)
}

func TestDefaultCatalogHasBothScales(t *testing.T) {
	counts := map[Category]int{}
	for _, e := range DefaultCatalog() {
		c, ok := ParseCategory(e.Category)
		require.True(t, ok, e.Category)
		counts[c]++
	}
	assert.GreaterOrEqual(t, counts[CategoryPositive], 2)
	assert.GreaterOrEqual(t, counts[CategoryNegative], 2)
	assert.Positive(t, counts[CategoryControl])
}

func TestParseCatalog(t *testing.T) {
	f, err := os.Open("testdata/catalog.yaml")
	require.NoError(t, err)
	defer f.Close()
	entries, err := ParseCatalog(f)
	require.NoError(t, err)
	assert.Equal(t, []CatalogEntry{
		{Text: "KI spart Zeit.", Category: "positive"},
		{Text: "KI ist riskant.", Category: "Negativ"},
	}, entries)

	bad := []string{
		"items:\n  - text: a\n    category: neutral\n",
		"items:\n  - text: ''\n    category: Positiv\n",
		"items:\n  - text: a\n    category: Positiv\n  - text: a\n    category: Negativ\n",
		"items:\n  - text: a\n    kategorie: Positiv\n",
	}
	for _, doc := range bad {
		_, err := ParseCatalog(strings.NewReader(doc))
		assert.Error(t, err, doc)
	}
}
