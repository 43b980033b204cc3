package catalog

// Layout bounds: the number of panels in the single output image.
const (
	MinLayout = 1
	MaxLayout = 4
)

// LayoutOption is the user-facing description of a layout.
type LayoutOption struct {
	Panels int    `json:"value"`
	Label  string `json:"label"`
}

// LayoutOptions returns the supported layouts.
func LayoutOptions() []LayoutOption {
	return []LayoutOption{
		{1, "Single"},
		{2, "2-up"},
		{3, "3-up"},
		{4, "4-up"},
	}
}

// ValidLayout reports whether panels is a supported layout.
func ValidLayout(panels int) bool {
	return panels >= MinLayout && panels <= MaxLayout
}
