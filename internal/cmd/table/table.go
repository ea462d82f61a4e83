// Package table converts catalog, manifest and reconciliation data into
// rows for CLI table output.
package table

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/scansync/pkg/catalogs"
	"github.com/agentstation/scansync/pkg/manifest"
	"github.com/agentstation/scansync/pkg/reconciler"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// StudiesToTableData lists manifest studies with their file count and
// newest update date.
func StudiesToTableData(studies []manifest.Study) Data {
	rows := make([][]string, 0, len(studies))
	for _, s := range studies {
		name, _ := s.Metadata["name"].(string)
		rows = append(rows, []string{s.ID(), name, strconv.Itoa(len(s.Files)), newest(s.Files)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })

	return Data{
		Headers:         []string{"Study", "Name", "Files", "Updated"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignLeft},
	}
}

// CatalogToTableData lists every recorded file, optionally restricted to
// one study. wide adds the full fingerprint.
func CatalogToTableData(cat *catalogs.Catalog, studyID string, wide bool) Data {
	headers := []string{"Study", "File", "Updated", "Verified"}
	if wide {
		headers = append(headers, "Fingerprint")
	}

	var rows [][]string
	for _, s := range cat.Studies {
		if studyID != "" && s.ID() != studyID {
			continue
		}
		for _, f := range s.Files {
			row := []string{s.ID(), f.Filename(), dash(f.UpdatedAt), strconv.FormatBool(f.Verified)}
			if wide {
				row = append(row, f.Fingerprint)
			}
			rows = append(rows, row)
		}
	}

	return Data{Headers: headers, Rows: rows}
}

// ResultToTableData renders a reconciliation result as property rows.
func ResultToTableData(r *reconciler.Result) Data {
	rows := [][]string{
		{"Study", r.StudyID},
		{"Run", r.RunID},
		{"Selected", strconv.Itoa(len(r.Selected))},
		{"Ingested", list(r.Downloaded)},
		{"Reused", list(r.Reused)},
		{"Skipped", list(r.Skipped)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

func newest(files []manifest.File) string {
	best := manifest.File{}
	for _, f := range files {
		if f.DateKey() > best.DateKey() {
			best = f
		}
	}
	return dash(best.UpdatedAt)
}

func list(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
