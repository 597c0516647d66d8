package services

import (
	"context"
	"fmt"

	"github.com/kihaltung/attitude/internal/logger"
	"github.com/kihaltung/attitude/internal/models"
)

type ItemStore interface {
	ListItems(ctx context.Context) ([]models.ItemRow, error)
	CreateItem(ctx context.Context, it models.ItemRow) (int64, error)
}

type ItemService struct {
	store ItemStore
	log   *logger.Logger
}

func NewItemService(store ItemStore, log *logger.Logger) *ItemService {
	return &ItemService{store: store, log: log}
}

// List returns the valid items in id order. Stored rows with an unknown
// category are skipped.
func (s *ItemService) List(ctx context.Context) ([]Item, error) {
	rows, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(rows, nil, nil).Items, nil
}

type CreateItemRequest struct {
	Text     string
	Category string
}

func (s *ItemService) Create(ctx context.Context, req CreateItemRequest) (*Item, error) {
	text := Sanitize(req.Text)
	if text == "" {
		return nil, NewInvalidError("text required")
	}
	cat, ok := ParseCategory(req.Category)
	if !ok {
		return nil, NewInvalidError("category must be Positive, Negative or Control")
	}
	id, err := s.store.CreateItem(ctx, models.ItemRow{Text: text, Category: storedCategory(cat)})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return &Item{ID: id, Text: text, Category: cat}, nil
}

// storedCategory is the label the questionnaire database keeps.
func storedCategory(c Category) string {
	switch c {
	case CategoryPositive:
		return "Positiv"
	case CategoryNegative:
		return "Negativ"
	}
	return "Kontrolle"
}

type SeedResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Seed adds catalogue entries whose text is not stored yet. A nil catalogue
// means the built-in one.
func (s *ItemService) Seed(ctx context.Context, entries []CatalogEntry) (*SeedResult, error) {
	if entries == nil {
		entries = DefaultCatalog()
	}
	rows, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(rows))
	for _, r := range rows {
		existing[r.Text] = true
	}
	res := &SeedResult{}
	for _, e := range entries {
		if existing[e.Text] {
			res.Skipped++
			continue
		}
		cat, ok := ParseCategory(e.Category)
		if !ok {
			return res, NewInvalidError(fmt.Sprintf("unknown category %q", e.Category))
		}
		if _, err := s.store.CreateItem(ctx, models.ItemRow{Text: e.Text, Category: storedCategory(cat)}); err != nil {
			return res, fmt.Errorf("seed item: %w", err)
		}
		existing[e.Text] = true
		res.Created++
	}
	s.log.Info("seeded %d items (%d already present)", res.Created, res.Skipped)
	return res, nil
}
