package store

import "github.com/pgvector/pgvector-go"

// VectorDimension is the embedding width used by the pgvector schema.
// gemini-embedding-001 supports truncation to 768 dimensions via
// OutputDimensionality (Matryoshka Representation Learning); Ollama and
// OpenAI embedders are configured to match.
const VectorDimension = 768

// Course is one course in the catalog. The title is the canonical identifier
// used everywhere downstream; there is no separate numeric ID. Courses are
// written once at ingestion time and treated as immutable afterwards.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson is one lesson inside a course, unique by number within its course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Chunk is a bounded span of course text stored for retrieval, tagged with
// its owning course and, when known, lesson.
type Chunk struct {
	Content      string
	CourseTitle  string
	LessonNumber *int // nil when the text precedes any lesson marker
	Index        int  // position of the chunk within its course document
}

// SearchQuery describes one content search. CourseTitle and LessonNumber are
// exact-match filters applied after course-name resolution; MaxResults is the
// result cap K and must be strictly positive.
type SearchQuery struct {
	Text         string
	CourseTitle  string
	LessonNumber *int
	MaxResults   int
}

// Hit is one ranked search result. Distance is the vector distance reported
// by the index; smaller is more similar.
type Hit struct {
	Chunk    Chunk
	Distance float64
}

// CourseRow is the catalog row shape exchanged with the Querier.
// Lessons is the JSON encoding of []Lesson.
type CourseRow struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []byte
	Embedding  pgvector.Vector
}

// ChunkRow is the content row shape exchanged with the Querier.
type ChunkRow struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Content      string
	Embedding    pgvector.Vector
}

// SearchChunksParams are the parameters for a filtered nearest-neighbor
// search over content chunks.
type SearchChunksParams struct {
	Embedding    pgvector.Vector
	CourseTitle  *string
	LessonNumber *int
	Limit        int
}

// ChunkHitRow is one row returned by SearchChunks, ordered by ascending
// distance.
type ChunkHitRow struct {
	Content      string
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
	Distance     float64
}
