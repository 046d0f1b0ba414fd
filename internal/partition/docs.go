package partition

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/farmsense/poultryqa/internal/domain"
)

// Persisted document-list shapes observed in the wild. Older ingesters wrote
// bare string lists, some wrote id-keyed maps; anything else is Unknown.
const (
	ShapeRecordList = "record_list"
	ShapeStringList = "string_list"
	ShapeIDMap      = "id_map"
	ShapeUnknown    = "unknown"
)

// NormalizeDocuments converts any persisted document payload into the
// canonical record list. It is total: every input, including garbage, yields
// a non-empty list. Records missing a source get a synthetic per-index one,
// and the detected original shape is recorded in metadata for observability.
func NormalizeDocuments(raw []byte, partitionID string) []domain.DocumentRecord {
	docs, shape := decodeDocuments(raw)

	if len(docs) == 0 {
		docs = []domain.DocumentRecord{{
			Content: "no documents could be recovered from the persisted partition data",
			Metadata: map[string]any{
				domain.MetaLoadError: "empty or unrecoverable document payload",
			},
		}}
		shape = ShapeUnknown
	}

	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = map[string]any{}
		}
		if docs[i].MetaString(domain.MetaSource) == "" {
			docs[i].Metadata[domain.MetaSource] = syntheticSource(partitionID, i)
		}
		docs[i].Metadata[domain.MetaOriginalShape] = shape
	}
	return docs
}

func syntheticSource(partitionID string, i int) string {
	return fmt.Sprintf("%s_doc_%d", partitionID, i)
}

func decodeDocuments(raw []byte) ([]domain.DocumentRecord, string) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, ShapeUnknown
	}

	// Shape (a)/(b): a JSON array of records or plain strings, possibly mixed.
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return decodeList(items)
	}

	// Shape (c): a mapping from id to record or string.
	var byID map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byID); err == nil && len(byID) > 0 {
		return decodeIDMap(byID), ShapeIDMap
	}

	// Shape (d): anything else is kept verbatim as a single record.
	return []domain.DocumentRecord{{Content: string(raw)}}, ShapeUnknown
}

func decodeList(items []json.RawMessage) ([]domain.DocumentRecord, string) {
	docs := make([]domain.DocumentRecord, 0, len(items))
	sawRecord := false
	for _, item := range items {
		doc, isRecord := decodeEntry(item)
		sawRecord = sawRecord || isRecord
		docs = append(docs, doc)
	}
	if sawRecord {
		return docs, ShapeRecordList
	}
	return docs, ShapeStringList
}

func decodeIDMap(byID map[string]json.RawMessage) []domain.DocumentRecord {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]domain.DocumentRecord, 0, len(ids))
	for _, id := range ids {
		doc, _ := decodeEntry(byID[id])
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		if doc.MetaString(domain.MetaSource) == "" {
			doc.Metadata[domain.MetaSource] = id
		}
		doc.Metadata[domain.MetaDocID] = id
		docs = append(docs, doc)
	}
	return docs
}

// decodeEntry turns one list/map element into a record. isRecord reports
// whether the element was record-shaped rather than a plain string.
func decodeEntry(item json.RawMessage) (domain.DocumentRecord, bool) {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return domain.DocumentRecord{Content: s}, false
	}

	var rec domain.DocumentRecord
	if err := json.Unmarshal(item, &rec); err == nil {
		if rec.Content == "" {
			// Record-shaped but with no usable content field: keep the
			// original JSON so nothing silently disappears.
			rec.Content = string(item)
		}
		return rec, true
	}

	return domain.DocumentRecord{Content: string(item)}, false
}
