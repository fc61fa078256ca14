// Package catalog combines the Inference Service's "currently loaded"
// model list with the static preset table into one directory.
package catalog

import (
	"infergate/internal/preset"
	"infergate/internal/upstream"
)

// Entry is one row of the merged model directory.
type Entry struct {
	Name       string         `json:"name"`
	Size       int64          `json:"size,omitempty"`
	ModifiedAt string         `json:"modified_at,omitempty"`
	Loaded     bool           `json:"loaded"`
	Preset     *preset.Preset `json:"preset,omitempty"`
}

// Merge builds the directory: loaded models first, in upstream-reported
// order, each with its preset attached (nil when only the category default
// matched); then every preset entry not already represented, in table
// order, as "available but not loaded". Upstream listings may report bare
// short names, so duplicate suppression compares short names, not full ids.
func Merge(loaded []upstream.ModelSummary, table *preset.Table) []Entry {
	entries := make([]Entry, 0, len(loaded)+len(table.Entries()))
	seen := make(map[string]struct{}, len(loaded))

	for _, m := range loaded {
		e := Entry{
			Name:       m.Name,
			Size:       m.Size,
			ModifiedAt: m.ModifiedAt,
			Loaded:     true,
		}
		if p := table.Resolve(m.Name); !p.IsDefault() {
			e.Preset = &p
		}
		entries = append(entries, e)
		seen[preset.ShortName(m.Name)] = struct{}{}
	}

	for _, p := range table.Entries() {
		if _, ok := seen[preset.ShortName(p.ModelID)]; ok {
			continue
		}
		p := p
		entries = append(entries, Entry{
			Name:   p.ModelID,
			Loaded: false,
			Preset: &p,
		})
	}
	return entries
}
