package model

// SearchDocument is the denormalized, searchable projection of one source
// entity. At most one row exists per (SourceType, SourceID); every reindex
// overwrites the projection fields in full.
type SearchDocument struct {
	ID         string                 `json:"id"`
	SourceType SourceType             `json:"source_type"`
	SourceID   string                 `json:"source_id"`
	Title      string                 `json:"title"`
	Text       string                 `json:"text"`
	HTML       string                 `json:"html"`
	Metadata   map[string]interface{} `json:"metadata"`
	Perms      map[string]interface{} `json:"permissions"`
	// Embedding is nil when the document has not been embedded yet or the
	// embedding capability was unavailable at reindex time. That is a
	// legitimate steady state, not an error.
	Embedding []float32 `json:"embedding,omitempty"`
	Ctime     int64     `json:"ctime"`
	Mtime     int64     `json:"mtime"`
}

// SourceKey addresses one search document by its owning entity.
type SourceKey struct {
	SourceType SourceType `json:"source_type"`
	SourceID   string     `json:"source_id"`
}
