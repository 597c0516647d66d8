package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

func na(p *float64, prec int) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, *p)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderReportMarkdown formats the research report as GitHub-flavoured
// Markdown with one table per section.
func RenderReportMarkdown(rep *ResearchReport) []byte {
	var b bytes.Buffer
	d := rep.Descriptives
	fmt.Fprintf(&b, "# Research report\n\nGenerated %s over %d consented participants.\n\n", rep.GeneratedAt.Format("2006-01-02 15:04 MST"), d.Participants)
	fmt.Fprintf(&b, "Completeness: %d complete, %d partial, %d demographics only.\n\n",
		d.Completeness[CompletenessComplete], d.Completeness[CompletenessPartial], d.Completeness[CompletenessDemographicsOnly])
	if n := d.Rejected.Total(); n > 0 {
		fmt.Fprintf(&b, "%d stored rows were rejected while loading.\n\n", n)
	}

	b.WriteString("## Items\n\n| Item | Category | n | Mean | SD | Median |\n|---|---|---:|---:|---:|---:|\n")
	for _, it := range d.Items {
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s |\n", cell(it.Text), it.Category, it.N, na(it.Mean, 2), na(it.SD, 2), na(it.Median, 1))
	}

	b.WriteString("\n## Reliability\n\n| Scale | Alpha | Complete cases |\n|---|---:|---:|\n")
	for _, r := range rep.Reliability {
		fmt.Fprintf(&b, "| %s | %s | %d |\n", r.Scale, na(r.Alpha, 3), r.Participants)
	}
	b.WriteString("\n| Scale | Item | Item-total r | Pairs |\n|---|---|---:|---:|\n")
	for _, r := range rep.Reliability {
		for _, it := range r.Items {
			fmt.Fprintf(&b, "| %s | %s | %s | %d |\n", r.Scale, cell(it.Text), na(it.ItemTotal, 3), it.Pairs)
		}
	}

	c := rep.Correlations
	fmt.Fprintf(&b, "\n## Correlations\n\nn = %d", c.N)
	if !c.Sufficient {
		fmt.Fprintf(&b, " (below %d, interpret with care)", MinCorrelationN)
	}
	b.WriteString("\n\n| Pair | r | p | Significant |\n|---|---:|---:|---|\n")
	pairs := []struct {
		name string
		res  CorrelationResult
	}{
		{"optimism / skepticism", c.OptimismSkepticism},
		{"age / optimism", c.AgeOptimism},
		{"age / skepticism", c.AgeSkepticism},
		{"experience / optimism", c.ExperienceOptimism},
		{"experience / skepticism", c.ExperienceSkepticism},
	}
	for _, p := range pairs {
		fmt.Fprintf(&b, "| %s | %.3f | %.4f | %t |\n", p.name, p.res.Correlation, p.res.PValue, p.res.Significant)
	}

	g := d.GenderContrast
	b.WriteString("\n## Gender contrast\n\n")
	if g.Available() {
		fmt.Fprintf(&b, "Welch t = %.3f, df = %.1f, p = %.4f (%s n=%d, %s n=%d).\n", *g.T, *g.DF, *g.PValue, g.GroupA, g.NA, g.GroupB, g.NB)
	} else {
		fmt.Fprintf(&b, "Not enough data (%s n=%d, %s n=%d).\n", g.GroupA, g.NA, g.GroupB, g.NB)
	}

	b.WriteString("\n## Group comparisons\n\n| Variable | Scale | Groups | F | p | Exact p | Assumptions | Inferential |\n|---|---|---:|---:|---:|---:|---|---|\n")
	for _, gr := range rep.Groups {
		for _, sc := range gr.Scales {
			assumptions := "met"
			if !sc.Assumptions.OverallValid {
				assumptions = "violated"
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %s | %s | %s | %s | %t |\n", gr.Variable, sc.Scale, len(sc.Groups),
				na(sc.Anova.FStatistic, 3), na(sc.Anova.PValue, 2), na(sc.Anova.ExactPValue, 4), assumptions, sc.Inferential)
		}
	}
	return b.Bytes()
}

var reportMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderReportHTML converts the Markdown report to an HTML fragment.
func RenderReportHTML(rep *ResearchReport) ([]byte, error) {
	var out bytes.Buffer
	if err := reportMarkdown.Convert(RenderReportMarkdown(rep), &out); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	return out.Bytes(), nil
}
