// Package catalog holds the closed sets a generation request is drawn from:
// the model allow-list, the style modes and the panel layouts.
package catalog

// Model identifiers on the allow-list.
const (
	ModelFlash = "gemini-2.5-flash-image"
	ModelPro   = "gemini-3-pro-image-preview"

	// DefaultModel is used whenever a caller names a model outside the allow-list.
	DefaultModel = ModelFlash
)

// Model describes an allow-listed remote model.
type Model struct {
	ID           string  `json:"id"`
	Label        string  `json:"label"`
	CostPerImage float64 `json:"cost"`
	// NeedsExplicitness marks models that drift toward sketches or text-only
	// replies unless the prompt insists on a finished image.
	NeedsExplicitness bool `json:"-"`
}

var models = []Model{
	{ID: ModelPro, Label: "Pro ($0.13/img)", CostPerImage: 0.134},
	{ID: ModelFlash, Label: "Flash (free)", CostPerImage: 0, NeedsExplicitness: true},
}

// Models returns the allow-list in display order.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Lookup returns the allow-listed model with the given id.
func Lookup(id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// Resolve returns the allow-listed model for id, or the default model.
func Resolve(id string) Model {
	if m, ok := Lookup(id); ok {
		return m
	}
	m, _ := Lookup(DefaultModel)
	return m
}

// CostPerImage returns the per-image price of id; unknown ids cost nothing.
func CostPerImage(id string) float64 {
	if m, ok := Lookup(id); ok {
		return m.CostPerImage
	}
	return 0
}
