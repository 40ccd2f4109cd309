package model

type AnswerSource struct {
	SegmentID  int64   `json:"segment_id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Answer is the end-to-end result of one grounded query.
type Answer struct {
	Question    string         `json:"question"`
	Text        string         `json:"answer"`
	Sources     []AnswerSource `json:"sources"`
	ContextUsed int            `json:"context_used"`
}

type IngestResult struct {
	SegmentIDs     []int64 `json:"document_id_refs"`
	ChunkCount     int     `json:"chunk_count"`
	EmbeddedChunks int     `json:"embedded_chunks"`
	TotalChars     int     `json:"total_characters"`
}
