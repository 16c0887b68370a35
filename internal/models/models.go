package models

// HazmatRecord is one row of the PHMSA hazardous materials table, keyed by
// column header. The table's column set varies between published revisions,
// so rows are kept as-is rather than mapped onto a fixed struct.
type HazmatRecord map[string]string

// Incident is a single CAD/911 incident as reported by the feed. Feeds differ
// in which fields they populate, so records are passed through untyped.
type Incident map[string]any

// InteractionResult is the outcome of a drug interaction check.
type InteractionResult struct {
	Interaction bool   `json:"interaction"`
	Details     string `json:"details"`
}

// License describes a tracked license and its expiration date.
type License struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	ExpiryDate string `json:"expiry_date"`
}
