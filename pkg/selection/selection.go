// Package selection decides which file entries of a study a reconciliation
// run considers, before any catalog lookup or download happens.
package selection

import (
	"sort"
	"strings"

	"github.com/agentstation/scansync/pkg/errors"
	"github.com/agentstation/scansync/pkg/manifest"
)

// Policy bounds and filters a study's file list.
//
// Count selects from the time-ordered list: 0 keeps everything, a positive
// value keeps the oldest Count entries and a negative value keeps the
// newest -Count entries. URLFilter, when set, drops entries whose URL does
// not contain it; filtering happens before counting.
type Policy struct {
	Count     int
	URLFilter string
}

// Latest is the policy used to fetch only the newest file of a study.
var Latest = Policy{Count: -1}

// All selects every file of a study.
var All = Policy{}

// Apply returns the selected entries in ascending update order. The input
// slice is not modified. When nothing survives filtering it returns
// errors.ErrEmptySelection.
func (p Policy) Apply(files []manifest.File) ([]manifest.File, error) {
	selected := make([]manifest.File, 0, len(files))
	for _, f := range files {
		if p.URLFilter != "" && !strings.Contains(f.Name, p.URLFilter) {
			continue
		}
		selected = append(selected, f)
	}

	// Stable so entries sharing a date (or lacking one) keep manifest order
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].DateKey() < selected[j].DateKey()
	})

	selected = p.bound(selected)
	if len(selected) == 0 {
		return nil, errors.ErrEmptySelection
	}
	return selected, nil
}

// bound trims an ordered list according to Count.
func (p Policy) bound(files []manifest.File) []manifest.File {
	// Compared without negating Count, which overflows at math.MinInt
	switch {
	case p.Count == 0 || p.Count >= len(files) || p.Count <= -len(files):
		return files
	case p.Count > 0:
		return files[:p.Count]
	default:
		return files[len(files)+p.Count:]
	}
}
