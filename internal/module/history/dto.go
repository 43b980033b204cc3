package history

// EntryResponse is an entry on the wire. Timestamp is Unix milliseconds.
type EntryResponse struct {
	ID        string   `json:"id"`
	Timestamp int64    `json:"timestamp"`
	Prompt    string   `json:"prompt"`
	Settings  Settings `json:"settings"`
	Images    []Image  `json:"images"`
}

// ToResponse converts an entry for the wire.
func ToResponse(e *Entry) *EntryResponse {
	images := e.Images
	if images == nil {
		images = []Image{}
	}
	return &EntryResponse{
		ID:        e.ID,
		Timestamp: e.Timestamp.UnixMilli(),
		Prompt:    e.Prompt,
		Settings:  e.Settings,
		Images:    images,
	}
}

// ListResponse is the body of GET /history.
type ListResponse struct {
	Entries    []*EntryResponse `json:"entries"`
	MaxEntries int              `json:"maxEntries"`
}
