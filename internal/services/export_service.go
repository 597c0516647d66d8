package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ResearchSource provides the consented dataset.
type ResearchSource interface {
	Research(ctx context.Context) (*Dataset, error)
}

type ExportParams struct {
	Format string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ExportService struct {
	source ResearchSource
}

func NewExportService(source ResearchSource) *ExportService {
	return &ExportService{source: source}
}

// Export renders the consented dataset. Format is one of long, wide, score,
// items or xlsx; empty means long.
func (s *ExportService) Export(ctx context.Context, params ExportParams) (*ExportResult, error) {
	format := strings.ToLower(strings.TrimSpace(params.Format))
	if format == "" {
		format = "long"
	}
	switch format {
	case "long", "wide", "score", "items", "xlsx":
	default:
		return nil, NewInvalidError("unsupported format")
	}
	ds, err := s.source.Research(ctx)
	if err != nil {
		return nil, err
	}

	var b []byte
	switch format {
	case "long":
		b, err = ExportLongCSV(ds)
	case "wide":
		b, err = ExportWideCSV(ds)
	case "score":
		b, err = ExportScoreCSV(ds)
	case "items":
		b, err = ExportItemsCSV(ds.Items)
	case "xlsx":
		b, err = ExportWorkbook(ctx, ds)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: "attitude.xlsx", ContentType: xlsxContentType, Data: b}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ExportResult{Filename: format + ".csv", ContentType: csvContentType, Data: b}, nil
}

// ExportWorkbook bundles the long, wide and score tables with the group
// comparisons into one workbook.
func ExportWorkbook(ctx context.Context, ds *Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	tables := []struct {
		sheet  string
		render func(*Dataset) ([]byte, error)
	}{
		{"long", ExportLongCSV},
		{"wide", ExportWideCSV},
		{"scores", ExportScoreCSV},
	}
	for i, tbl := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", tbl.sheet); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(tbl.sheet); err != nil {
			return nil, err
		}
		data, err := tbl.render(ds)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", tbl.sheet, err)
		}
		recs, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			return nil, err
		}
		for r, rec := range recs {
			row := make([]interface{}, len(rec))
			for c, v := range rec {
				row[c] = v
			}
			if err := writeRow(f, tbl.sheet, r+1, row); err != nil {
				return nil, err
			}
		}
	}

	groups, err := CompareAllGroups(ctx, ds)
	if err != nil {
		return nil, err
	}
	if _, err := f.NewSheet("groups"); err != nil {
		return nil, err
	}
	header := []interface{}{"variable", "scale", "group", "n", "mean", "sd", "f", "p_bucket", "p_exact", "inferential"}
	if err := writeRow(f, "groups", 1, header); err != nil {
		return nil, err
	}
	r := 2
	for _, g := range groups {
		for _, sc := range g.Scales {
			for _, gs := range sc.Groups {
				row := []interface{}{string(g.Variable), string(sc.Scale), gs.Label, gs.N, gs.Mean, gs.SD,
					cellValue(sc.Anova.FStatistic), cellValue(sc.Anova.PValue), cellValue(sc.Anova.ExactPValue), sc.Inferential}
				if err := writeRow(f, "groups", r, row); err != nil {
					return nil, err
				}
				r++
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func cellValue(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
