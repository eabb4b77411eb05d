package domain

// Scheme is a welfare program returned by the upstream matcher. Immutable
// once received; the gateway renders it read-only.
type Scheme struct {
	Name      string `json:"name"`
	Benefits  string `json:"benefits"`
	Why       string `json:"why"`
	PortalURL string `json:"portal_url,omitempty"`
}

// StateInfo is one entry of the canonical state table: a language-independent
// key plus its display names.
type StateInfo struct {
	Key  string `json:"key"`
	En   string `json:"en"`
	Hi   string `json:"hi"`
	Type string `json:"type"`
}
