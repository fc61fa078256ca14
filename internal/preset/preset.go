package preset

import "strings"

// Category selects one of the independent preset tables.
type Category string

const (
	CategoryLLM         Category = "llm"
	CategoryImage       Category = "image"
	CategoryImage2Image Category = "image2image"
	CategoryImage3D     Category = "image3d"
	CategoryVideo       Category = "video"
)

// DefaultModelID marks a category's fallback preset. A resolved preset with
// this model id means "no specific preset exists for the requested model".
const DefaultModelID = "default"

// Preset bundles generation defaults, UI bounds, and capability flags for
// one model. Image/video-only fields are zero for LLM presets and vice
// versa. Presets are loaded once at startup and never mutated.
type Preset struct {
	ModelID      string  `yaml:"model_id" json:"model_id"`
	Temperature  float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	TopP         float64 `yaml:"top_p,omitempty" json:"top_p,omitempty"`
	TopK         int     `yaml:"top_k,omitempty" json:"top_k,omitempty"`
	MaxTokens    int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	PromptFormat string  `yaml:"prompt_format,omitempty" json:"prompt_format,omitempty"`

	MinTemperature float64 `yaml:"min_temperature,omitempty" json:"min_temperature,omitempty"`
	MaxTemperature float64 `yaml:"max_temperature,omitempty" json:"max_temperature,omitempty"`
	MinTopP        float64 `yaml:"min_top_p,omitempty" json:"min_top_p,omitempty"`
	MaxTopP        float64 `yaml:"max_top_p,omitempty" json:"max_top_p,omitempty"`
	MaxTokensLimit int     `yaml:"max_tokens_limit,omitempty" json:"max_tokens_limit,omitempty"`

	SupportsSystemPrompt bool `yaml:"supports_system_prompt,omitempty" json:"supports_system_prompt,omitempty"`
	SupportsVision       bool `yaml:"supports_vision,omitempty" json:"supports_vision,omitempty"`

	// Diffusion / video parameters.
	Steps         int     `yaml:"steps,omitempty" json:"steps,omitempty"`
	GuidanceScale float64 `yaml:"guidance_scale,omitempty" json:"guidance_scale,omitempty"`
	Width         int     `yaml:"width,omitempty" json:"width,omitempty"`
	Height        int     `yaml:"height,omitempty" json:"height,omitempty"`
	Strength      float64 `yaml:"strength,omitempty" json:"strength,omitempty"`
	NumFrames     int     `yaml:"num_frames,omitempty" json:"num_frames,omitempty"`
	FPS           int     `yaml:"fps,omitempty" json:"fps,omitempty"`
}

// IsDefault reports whether p is a category fallback rather than a preset
// for a specific model.
func (p Preset) IsDefault() bool {
	return p.ModelID == DefaultModelID
}

// Table is one category's ordered preset table. Entry order is the file
// order of tables.yaml; short-name resolution depends on it (first match
// wins), so the order is part of the contract.
type Table struct {
	category Category
	entries  []Preset
	byID     map[string]int
	fallback Preset
}

// Category returns the table's category.
func (t *Table) Category() Category {
	return t.category
}

// Entries returns the table's presets in insertion order. The returned
// slice must not be modified.
func (t *Table) Entries() []Preset {
	return t.entries
}

// Default returns the category fallback preset.
func (t *Table) Default() Preset {
	return t.fallback
}

// Resolve maps a model identifier to its preset. Resolution order:
//
//  1. exact key match;
//  2. short-name fallback: the first entry, in table order, whose key ends
//     with or contains the part of modelID after the last "/";
//  3. the category default.
//
// Resolve never fails; an unknown model degrades to the default.
func (t *Table) Resolve(modelID string) Preset {
	if i, ok := t.byID[modelID]; ok {
		return t.entries[i]
	}
	short := ShortName(modelID)
	if short != "" {
		for _, p := range t.entries {
			if strings.HasSuffix(p.ModelID, short) || strings.Contains(p.ModelID, short) {
				return p
			}
		}
	}
	return t.fallback
}

// ShortName returns the part of a model id after the last "/", or the id
// itself when it has no org prefix.
func ShortName(modelID string) string {
	if i := strings.LastIndexByte(modelID, '/'); i >= 0 {
		return modelID[i+1:]
	}
	return modelID
}
