package models

import "time"

// Tenant owns one catalog and one style config. AccountKey is the email-like
// account identifier and doubles as the document-store partition key and the
// object-store path prefix.
type Tenant struct {
	AccountKey   string    `json:"account_key" db:"account_key"`
	AdminKeyHash string    `json:"-" db:"admin_key_hash"`
	RepoName     string    `json:"repo_name" db:"repo_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// StyleConfig is the visual configuration chosen during the wizard steps.
// The renderer treats it as opaque input; identical configs must render to
// identical bytes.
type StyleConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Font        string `json:"font"`
	Style       string `json:"style"`
	Borders     string `json:"borders"`
	Buttons     string `json:"buttons"`
	ImageView   string `json:"image_view"`
	VisualStyle string `json:"visual_style"`
	LogoURL     string `json:"logo_url"`
	Facebook    string `json:"facebook"`
	Whatsapp    string `json:"whatsapp"`
	Instagram   string `json:"instagram"`
	About       string `json:"about"`
	Location    string `json:"location"`
	MapLink     string `json:"map_link"`
}

// SessionContext is the read-only snapshot handed to the pipeline for one
// publish. The pipeline never writes back into it.
type SessionContext struct {
	AccountKey string      `json:"account_key"`
	Style      StyleConfig `json:"style"`
	RepoName   string      `json:"repo_name"`
	Branch     string      `json:"branch"`
}
