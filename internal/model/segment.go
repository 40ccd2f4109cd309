package model

// SegmentType discriminates where a stored segment came from.
const (
	SegmentTypeManual   = "manual"
	SegmentTypeDocument = "document"
)

// SegmentMetadata is the structured record persisted in the segments.metadata
// jsonb column. All fields are validated at ingestion, downstream code never
// guesses at absent keys.
type SegmentMetadata struct {
	Title          string `json:"title"`
	Category       string `json:"category"`
	Type           string `json:"type"`
	SourceFilename string `json:"source_filename,omitempty"`
	FileKey        string `json:"file_key,omitempty"`
	ChunkIndex     int    `json:"chunk_index"`
	TotalChunks    int    `json:"total_chunks"`
}

// Segment is the unit of retrieval. Embedding is nil until the ingestion
// fan-out (or the backfill job) has embedded it; such segments are never
// returned by similarity search.
type Segment struct {
	ID        int64           `json:"id"`
	Content   string          `json:"content"`
	Embedding []float32       `json:"-"`
	Meta      SegmentMetadata `json:"metadata"`
	Ctime     int64           `json:"ctime"`
}

// ScoredSegment pairs a segment with its sanitized cosine similarity.
type ScoredSegment struct {
	Segment
	Similarity float64 `json:"similarity"`
}

type EmbeddingCache struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}
