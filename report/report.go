// Package report renders the outcome of an investigation for people (text
// tables) and for machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	investigator "github.com/always-cache/cache-investigator"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Document is the persisted form of a finished run.
type Document struct {
	ID         string                      `json:"id"`
	BaseURL    string                      `json:"baseUrl"`
	State      investigator.State          `json:"state"`
	Iterations int                         `json:"iterations"`
	StartedAt  time.Time                   `json:"startedAt"`
	FinishedAt time.Time                   `json:"finishedAt"`
	Summary    investigator.Summary        `json:"summary"`
	Memory     investigator.MemorySnapshot `json:"memory"`
}

func FromResult(res *investigator.Result) Document {
	return Document{
		ID:         res.ID,
		BaseURL:    res.BaseURL,
		State:      res.State,
		Iterations: res.Iterations,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Summary:    res.Summary,
		Memory:     res.Memory.Snapshot(),
	}
}

// Parse reads a document written by JSON.
func Parse(data []byte) (Document, error) {
	var doc Document
	err := json.Unmarshal(data, &doc)
	return doc, err
}

func JSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

type Mode int

const (
	ASCII Mode = iota
	Markdown
)

func Text(w io.Writer, doc Document) error {
	return render(w, doc, ASCII)
}

func MarkdownText(w io.Writer, doc Document) error {
	return render(w, doc, Markdown)
}

func render(w io.Writer, doc Document, mode Mode) error {
	s := doc.Summary
	var b strings.Builder

	heading(&b, mode, "Cache investigation: "+doc.BaseURL)
	fmt.Fprintf(&b, "Run %s, %s after %d iterations (%s)\n",
		doc.ID, doc.State, doc.Iterations, doc.FinishedAt.Sub(doc.StartedAt).Round(time.Second))
	cacheWorking := "no"
	if s.CacheWorking {
		cacheWorking = "yes"
	}
	fmt.Fprintf(&b, "Pages analyzed: %d, cache working: %s\n", s.PagesAnalyzed, cacheWorking)

	if len(doc.Memory.AnalyzedPages) > 0 {
		t := newTable(mode)
		t.AppendHeader(table.Row{"URL", "Status", "Cached", "TTFB 1st", "TTFB 2nd", "Freshness"})
		for _, p := range doc.Memory.AnalyzedPages {
			row := table.Row{p.URL, "-", "-", "-", "-", "-"}
			if p.Fetch != nil {
				row[1] = p.Fetch.StatusCode
			}
			if a := p.Analysis; a != nil {
				row[2] = yesNo(a.CacheStatus.Working)
				row[3] = fmt.Sprintf("%dms", a.Timing.FirstTTFB)
				row[4] = fmt.Sprintf("%dms", a.Timing.SecondTTFB)
				row[5] = a.Freshness
			}
			t.AppendRow(row)
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, WidthMax: 60},
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
		})
		section(&b, mode, "Pages", t)
	}

	if len(s.Plugins)+len(s.CDNs) > 0 {
		t := newTable(mode)
		t.AppendHeader(table.Row{"Kind", "Name"})
		for _, p := range s.Plugins {
			t.AppendRow(table.Row{"plugin", p})
		}
		for _, c := range s.CDNs {
			t.AppendRow(table.Row{"cdn", c})
		}
		section(&b, mode, "Detected", t)
	}

	if len(s.Conflicts) > 0 {
		t := newTable(mode)
		t.AppendHeader(table.Row{"Conflict"})
		for _, c := range s.Conflicts {
			t.AppendRow(table.Row{c})
		}
		section(&b, mode, "Conflicts", t)
	}

	if len(s.Experiments) > 0 {
		t := newTable(mode)
		t.AppendHeader(table.Row{"Test", "Hypothesis", "Result"})
		for _, e := range s.Experiments {
			t.AppendRow(table.Row{e.TestName, e.Hypothesis, e.Result})
		}
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 40},
			{Number: 3, WidthMax: 60},
		})
		section(&b, mode, "Experiments", t)
	}

	heading(&b, mode, "Analysis")
	if s.Confidence != "" {
		fmt.Fprintf(&b, "Confidence: %s\n\n", s.Confidence)
	}
	b.WriteString(s.FinalAnalysis + "\n")
	list(&b, mode, "Recommendations", s.Recommendations, true)
	list(&b, mode, "Gaps", s.Gaps, false)
	list(&b, mode, "Observations", s.Observations, false)

	_, err := io.WriteString(w, b.String())
	return err
}

func newTable(mode Mode) table.Writer {
	t := table.NewWriter()
	if mode == ASCII {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func heading(b *strings.Builder, mode Mode, title string) {
	b.WriteString("\n")
	if mode == Markdown {
		b.WriteString("## " + title + "\n\n")
		return
	}
	b.WriteString(title + "\n" + strings.Repeat("=", len(title)) + "\n")
}

func section(b *strings.Builder, mode Mode, title string, t table.Writer) {
	heading(b, mode, title)
	if mode == Markdown {
		b.WriteString(t.RenderMarkdown() + "\n")
		return
	}
	b.WriteString(t.Render() + "\n")
}

func list(b *strings.Builder, mode Mode, title string, items []string, numbered bool) {
	if len(items) == 0 {
		return
	}
	heading(b, mode, title)
	for i, item := range items {
		if numbered {
			fmt.Fprintf(b, "%d. %s\n", i+1, item)
		} else {
			fmt.Fprintf(b, "- %s\n", item)
		}
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
