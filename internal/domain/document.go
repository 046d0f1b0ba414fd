package domain

// Metadata keys recognized by the ranking and synthesis layers.
// Metadata is otherwise free-form: loaders keep whatever the ingester wrote.
const (
	MetaContentType   = "content_type"
	MetaDomain        = "domain"
	MetaSource        = "source"
	MetaFileName      = "file_name"
	MetaTitle         = "title"
	MetaDocID         = "doc_id"
	MetaAgeRange      = "age_range"
	MetaLevel         = "level"
	MetaOriginalShape = "original_shape"
	MetaLoadError     = "load_error"
)

// ContentTypeTable marks a record as tabular for the metadata ranking bonus.
const ContentTypeTable = "table"

// DocumentRecord is one retrievable passage with its ingestion metadata.
// Immutable once loaded into a partition snapshot.
type DocumentRecord struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// MetaString returns a string metadata value, or "" when absent or non-string.
func (d DocumentRecord) MetaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	if s, ok := d.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// RankedResult is a document with its raw index distance and the final
// bounded relevance score in [0,1].
type RankedResult struct {
	Document   DocumentRecord
	RawScore   float64
	FinalScore float64
}

// QueryContext is the per-request retrieval state.
type QueryContext struct {
	RawQuery        string
	DomainHint      string
	Confidence      float64
	PartitionsTried []string
}

// Diagnostics describes how an answer was produced, for observability of
// retrieval quality.
type Diagnostics struct {
	QueryID         string   `json:"query_id"`
	Partition       string   `json:"partition"`
	DetectedLabel   string   `json:"detected_label"`
	Confidence      float64  `json:"confidence"`
	PartitionsTried []string `json:"partitions_tried"`
	EmbeddingMethod string   `json:"embedding_method"`
	ResultCount     int      `json:"result_count"`
}

// RetrievalResult is the structured output handed back to the caller.
type RetrievalResult struct {
	Answer          string           `json:"answer"`
	SourceDocuments []DocumentRecord `json:"source_documents"`
	Meta            Diagnostics      `json:"meta"`
}
