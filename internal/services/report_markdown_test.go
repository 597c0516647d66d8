package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(t *testing.T) *ResearchReport {
	t.Helper()
	src := studyRows(40)
	ds := ParseSnapshot(src.items, src.responses, src.answers).Consented()
	rep, err := BuildReport(context.Background(), ds, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return rep
}

func TestRenderReportMarkdown(t *testing.T) {
	md := string(RenderReportMarkdown(testReport(t)))
	assert.True(t, strings.HasPrefix(md, "# Research report"))
	assert.Contains(t, md, "over 20 consented participants")
	for _, section := range []string{"## Items", "## Reliability", "## Correlations", "## Gender contrast", "## Group comparisons"} {
		assert.Contains(t, md, section)
	}
	for _, v := range Variables {
		assert.Equal(t, len(Scales), strings.Count(md, "\n| "+string(v)+" | "), v)
	}
}

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML(testReport(t))
	require.NoError(t, err)
	s := string(html)
	assert.Contains(t, s, "<h1>Research report</h1>")
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<th>Scale</th>")
}

func TestNA(t *testing.T) {
	v := 0.12345
	assert.Equal(t, "n/a", na(nil, 2))
	assert.Equal(t, "0.12", na(&v, 2))
	assert.Equal(t, `a\|b`, cell("a|b"))
}
