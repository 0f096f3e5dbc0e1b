package models

// AssetOutcome records the terminal state of one uploaded image.
type AssetOutcome struct {
	Index  int    `json:"index"`
	URL    string `json:"url,omitempty"`
	Status string `json:"status"` // "stored" or "failed"
	Error  string `json:"error,omitempty"`
}

// AssetBatchResult is the partial result of one thumbnail batch. A bad image
// never fails the batch; it is just absent from URLs.
type AssetBatchResult struct {
	Total  int            `json:"total"`
	Stored int            `json:"stored"`
	Failed int            `json:"failed"`
	URLs   []string       `json:"urls"`
	Assets []AssetOutcome `json:"assets"`
}
