package preset

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

// Tables holds the five independent category tables.
type Tables struct {
	LLM         *Table
	Image       *Table
	Image2Image *Table
	Image3D     *Table
	Video       *Table
}

// ByCategory returns the table for c, or nil for an unknown category.
func (t *Tables) ByCategory(c Category) *Table {
	switch c {
	case CategoryLLM:
		return t.LLM
	case CategoryImage:
		return t.Image
	case CategoryImage2Image:
		return t.Image2Image
	case CategoryImage3D:
		return t.Image3D
	case CategoryVideo:
		return t.Video
	default:
		return nil
	}
}

type tableFile struct {
	Default Preset   `yaml:"default"`
	Models  []Preset `yaml:"models"`
}

type tablesFile struct {
	LLM         tableFile `yaml:"llm"`
	Image       tableFile `yaml:"image"`
	Image2Image tableFile `yaml:"image2image"`
	Image3D     tableFile `yaml:"image3d"`
	Video       tableFile `yaml:"video"`
}

// Load parses the embedded preset tables. Call once at startup; the result
// is read-only and safe for concurrent use.
func Load() (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(tablesYAML, &f); err != nil {
		return nil, fmt.Errorf("preset: parse tables: %w", err)
	}

	out := &Tables{}
	for _, tf := range []struct {
		category Category
		file     tableFile
		dst      **Table
	}{
		{CategoryLLM, f.LLM, &out.LLM},
		{CategoryImage, f.Image, &out.Image},
		{CategoryImage2Image, f.Image2Image, &out.Image2Image},
		{CategoryImage3D, f.Image3D, &out.Image3D},
		{CategoryVideo, f.Video, &out.Video},
	} {
		tbl, err := newTable(tf.category, tf.file)
		if err != nil {
			return nil, err
		}
		*tf.dst = tbl
	}
	return out, nil
}

func newTable(category Category, f tableFile) (*Table, error) {
	if f.Default.ModelID != DefaultModelID {
		return nil, fmt.Errorf("preset: %s table default has model_id %q, want %q",
			category, f.Default.ModelID, DefaultModelID)
	}
	byID := make(map[string]int, len(f.Models))
	for i, p := range f.Models {
		if p.ModelID == "" {
			return nil, fmt.Errorf("preset: %s table entry %d has no model_id", category, i)
		}
		if _, dup := byID[p.ModelID]; dup {
			return nil, fmt.Errorf("preset: %s table has duplicate model_id %q", category, p.ModelID)
		}
		byID[p.ModelID] = i
	}
	return &Table{
		category: category,
		entries:  f.Models,
		byID:     byID,
		fallback: f.Default,
	}, nil
}

var (
	defaultTables     *Tables
	defaultTablesErr  error
	defaultTablesOnce sync.Once
)

// Default returns the process-wide tables, loading them on first use.
func Default() (*Tables, error) {
	defaultTablesOnce.Do(func() {
		defaultTables, defaultTablesErr = Load()
	})
	return defaultTables, defaultTablesErr
}
