package model

// DocumentChunk is the unit of retrieval. ChunkID is derived from the owning
// document as "{doc_id}-{seq}". A chunk with a nil Embedding is pending and is
// excluded from similarity search until the reindex job backfills it.
type DocumentChunk struct {
	ChunkID   string    `json:"chunk_id"`
	DocID     string    `json:"doc_id"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Role      string    `json:"role"`
	Page      int       `json:"page"`
	Embedding []float32 `json:"-"`
	Ctime     int64     `json:"ctime"`
}

// ChunkMatch is a nearest-neighbor candidate returned by the vector index,
// ordered by descending similarity score.
type ChunkMatch struct {
	ChunkID string  `json:"chunk_id"`
	DocID   string  `json:"doc_id"`
	Text    string  `json:"text"`
	Source  string  `json:"source"`
	Role    string  `json:"role"`
	Page    int     `json:"page"`
	Score   float32 `json:"score"`
}

// Answer is the response of the query pipeline. Sources is deduplicated and
// sorted; it is empty when the refusal path was taken.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources"`
}
