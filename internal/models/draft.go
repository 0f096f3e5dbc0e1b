package models

// DraftRow is one user-submitted catalog row before validation. Price arrives
// as text because the wizard form accepts currency symbols and separators.
// Sizes may arrive either already split or as a comma-separated string; the
// synchronizer normalizes them once at ingestion.
type DraftRow struct {
	Name         string   `json:"name" validate:"required"`
	PriceText    string   `json:"price" validate:"required"`
	Group        string   `json:"group" validate:"required"`
	Subgroup     string   `json:"subgroup" validate:"required"`
	Description  string   `json:"description"`
	ImageURL     string   `json:"image_url"`
	DisplayOrder int      `json:"display_order"`
	Sizes        []string `json:"sizes"`
	SizesText    string   `json:"sizes_text"`
}

// RowOutcome records what happened to a single draft row.
type RowOutcome struct {
	Index  int    `json:"index"`
	IDBase string `json:"id_base,omitempty"`
	Status string `json:"status"` // "persisted" or "skipped"
	Error  string `json:"error,omitempty"`
}

// SyncResult is the structured partial result of a catalog sync: always
// "N of M rows persisted", never a single boolean.
type SyncResult struct {
	Total     int          `json:"total"`
	Persisted int          `json:"persisted"`
	Skipped   int          `json:"skipped"`
	Rows      []RowOutcome `json:"rows"`
}

// Status maps the result onto the wizard's {ok|partial|error} surface.
// An empty sync is ok: there was nothing to persist.
func (r *SyncResult) Status() string {
	switch {
	case r.Skipped == 0:
		return "ok"
	case r.Persisted > 0:
		return "partial"
	default:
		return "error"
	}
}
