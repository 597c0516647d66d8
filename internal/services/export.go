package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func optScore(p *float64) string {
	if p == nil {
		return ""
	}
	return formatScore(*p)
}

// scoreCell is the analysed value of an answer: reverse-scored for negative
// items, raw for control items.
func scoreCell(c Category, value int) string {
	if v, ok := ItemScore(c, value); ok {
		return formatScore(v)
	}
	return strconv.Itoa(value)
}

// ExportLongCSV renders one row per answer.
func ExportLongCSV(ds *Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"participant_id", "item_id", "category", "raw_value", "score_value", "submitted_at"})
	for _, p := range ds.Participants {
		submitted := ""
		if !p.CreatedAt.IsZero() {
			submitted = p.CreatedAt.UTC().Format(time.RFC3339)
		}
		for _, a := range ds.Answers(p.ID) {
			it, _ := ds.Item(a.ItemID)
			rec := []string{
				p.ID,
				strconv.FormatInt(a.ItemID, 10),
				string(it.Category),
				strconv.Itoa(a.Value),
				scoreCell(it.Category, a.Value),
				submitted,
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportWideCSV renders one row per participant: demographics followed by
// one column per item in id order. Unanswered items stay empty.
func ExportWideCSV(ds *Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"participant_id"}
	for _, v := range Variables {
		header = append(header, string(v))
	}
	header = append(header, "consent")
	for _, it := range ds.Items {
		header = append(header, "item_"+strconv.FormatInt(it.ID, 10))
	}
	_ = w.Write(header)
	for _, p := range ds.Participants {
		row := make([]string, 0, len(header))
		row = append(row, p.ID)
		for _, v := range Variables {
			row = append(row, p.Demographics.Value(v))
		}
		row = append(row, strconv.FormatBool(p.Consent))
		values := map[int64]int{}
		for _, a := range ds.Answers(p.ID) {
			values[a.ItemID] = a.Value
		}
		for _, it := range ds.Items {
			cell := ""
			if v, ok := values[it.ID]; ok {
				cell = scoreCell(it.Category, v)
			}
			row = append(row, cell)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportScoreCSV renders the scale scores and attitude type per participant.
// Missing scales and the type of incomplete profiles stay empty.
func ExportScoreCSV(ds *Dataset) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"participant_id", "optimism", "skepticism", "attitude_type"})
	for _, pp := range ds.Profiles() {
		attitude := ""
		if pp.Profile.Complete() {
			t, _ := ClassifyAttitude(*pp.Profile.Optimism, *pp.Profile.Skepticism)
			attitude = string(t)
		}
		rec := []string{pp.Participant.ID, optScore(pp.Profile.Optimism), optScore(pp.Profile.Skepticism), attitude}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportItemsCSV renders the item catalogue.
func ExportItemsCSV(items []Item) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"item_id", "category", "scale", "text"})
	for _, it := range items {
		sc, _ := ScaleFor(it.Category)
		if err := w.Write([]string{strconv.FormatInt(it.ID, 10), string(it.Category), string(sc), it.Text}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
