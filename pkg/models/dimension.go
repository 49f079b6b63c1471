package models

// Dimension is a measurement read back from the remote document.
type Dimension struct {
	GUID   string  `json:"guid"`
	Type   string  `json:"type"`
	Layer  string  `json:"layer"`
	Text   string  `json:"text"`
	Points []Point `json:"points"`
}
