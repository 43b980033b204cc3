package catalog

// Mode is a named visual style preset.
type Mode string

// Modes in enumeration order. Anything that iterates modes uses this order.
const (
	ModeThumbnail Mode = "thumbnail"
	ModeIcon      Mode = "icon"
	ModeLogo      Mode = "logo"
	ModeCartoon   Mode = "cartoon"
	ModeAvatar    Mode = "avatar"
	ModeSocial    Mode = "social"
	ModeBanner    Mode = "banner"
)

// DefaultModes is applied when a request does not name any mode.
var DefaultModes = []Mode{ModeThumbnail}

// ModeOption is the user-facing description of a mode.
type ModeOption struct {
	ID          Mode   `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var modeOptions = []ModeOption{
	{ModeThumbnail, "Thumbnail", "YouTube thumbnail with bold text"},
	{ModeIcon, "App Icon", "Square app icon, minimal, recognizable"},
	{ModeLogo, "Logo", "Clean logo design, vector-style"},
	{ModeCartoon, "Cartoon", "Cartoon/illustrated style"},
	{ModeAvatar, "Avatar", "Profile picture / avatar"},
	{ModeSocial, "Social Post", "Instagram/social media visual"},
	{ModeBanner, "Banner", "Wide banner / cover image"},
}

// ModeOptions returns every mode in enumeration order.
func ModeOptions() []ModeOption {
	out := make([]ModeOption, len(modeOptions))
	copy(out, modeOptions)
	return out
}

// Valid reports whether m belongs to the enumeration.
func (m Mode) Valid() bool {
	return m.index() >= 0
}

func (m Mode) index() int {
	for i, o := range modeOptions {
		if o.ID == m {
			return i
		}
	}
	return -1
}

// Ordered returns the distinct valid modes of in, sorted by enumeration order.
func Ordered(in []Mode) []Mode {
	seen := make([]bool, len(modeOptions))
	for _, m := range in {
		if i := m.index(); i >= 0 {
			seen[i] = true
		}
	}
	out := make([]Mode, 0, len(in))
	for i, ok := range seen {
		if ok {
			out = append(out, modeOptions[i].ID)
		}
	}
	return out
}
