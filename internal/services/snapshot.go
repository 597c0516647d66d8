package services

import (
	"context"
	"fmt"

	"github.com/kihaltung/attitude/internal/logger"
	"github.com/kihaltung/attitude/internal/models"
)

// DefaultPageSize is the number of rows fetched per snapshot page.
const DefaultPageSize = 1000

// SnapshotSource supplies raw rows page by page.
type SnapshotSource interface {
	ListItems(ctx context.Context) ([]models.ItemRow, error)
	ListResponsesPage(ctx context.Context, offset, limit int) ([]models.ResponseRow, error)
	ListAnswersPage(ctx context.Context, offset, limit int) ([]models.AnswerRow, error)
}

// SnapshotLoader fetches a full dataset once per analysis request.
type SnapshotLoader struct {
	source   SnapshotSource
	pageSize int
	log      *logger.Logger
}

func NewSnapshotLoader(source SnapshotSource, pageSize int, log *logger.Logger) *SnapshotLoader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = logger.Discard()
	}
	return &SnapshotLoader{source: source, pageSize: pageSize, log: log}
}

// Load reads items, then responses and answers page by page until a short
// page, and parses them into a Dataset.
func (l *SnapshotLoader) Load(ctx context.Context) (*Dataset, error) {
	items, err := l.source.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	responses, err := readPages(ctx, l.pageSize, l.source.ListResponsesPage)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	answers, err := readPages(ctx, l.pageSize, l.source.ListAnswersPage)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	ds := ParseSnapshot(items, responses, answers)
	if ds.Rejected.Total() > 0 {
		l.log.Warn("snapshot: dropped rows items=%d participants=%d answers=%d duplicates=%d",
			ds.Rejected.Items, ds.Rejected.Participants, ds.Rejected.Answers, ds.Rejected.Duplicates)
	}
	l.log.Debug("snapshot: %d items, %d participants, %d answer rows", len(ds.Items), len(ds.Participants), len(answers))
	return ds, nil
}

func readPages[T any](ctx context.Context, size int, page func(context.Context, int, int) ([]T, error)) ([]T, error) {
	var all []T
	for offset := 0; ; offset += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := page(ctx, offset, size)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < size {
			return all, nil
		}
	}
}
