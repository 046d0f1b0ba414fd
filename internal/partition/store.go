// Package partition owns the lazily loaded knowledge partitions: per-domain
// document snapshots plus their similarity indexes, read from artifacts the
// ingestion pipeline wrote to disk.
package partition

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/index"
	"github.com/farmsense/poultryqa/internal/logger"
	"github.com/farmsense/poultryqa/internal/metrics"
)

// Artifact file names inside a partition directory.
const (
	storeFileName  = "store.json"
	backupFileName = "store.json.bak"
	indexFileName  = "index.bin"
)

// Partition is an immutable snapshot of one loaded knowledge partition.
// documents[i] corresponds to index row i.
type Partition struct {
	ID         string
	Index      index.Index
	Documents  []domain.DocumentRecord
	Method     domain.Method
	Dimensions int
}

// storeFile is the persisted document-list artifact. Documents stay raw so
// shape normalization can run over whatever the ingester produced.
type storeFile struct {
	EmbeddingMethod string          `json:"embedding_method"`
	Dimensions      int             `json:"dimensions,omitempty"`
	Documents       json.RawMessage `json:"documents"`
}

// Store lazily loads partitions and caches the immutable snapshots for the
// process lifetime. Loads are guarded by a mutex; reads after a successful
// load are lock-free copies of the snapshot pointer.
type Store struct {
	cfg    config.PartitionsConfig
	ids    []string
	logger *zap.Logger

	mu    sync.RWMutex
	parts map[string]*Partition
}

// New creates a partition store for the given partition ids (domain labels
// plus the generic partition).
func New(cfg config.PartitionsConfig, labels []string, log *zap.Logger) *Store {
	ids := make([]string, 0, len(labels)+1)
	ids = append(ids, labels...)
	found := false
	for _, id := range ids {
		if id == cfg.Generic {
			found = true
			break
		}
	}
	if !found {
		ids = append(ids, cfg.Generic)
	}
	return &Store{
		cfg:    cfg,
		ids:    ids,
		logger: log,
		parts:  make(map[string]*Partition),
	}
}

// IDs returns all recognized partition ids.
func (s *Store) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Generic returns the id of the generic/default partition.
func (s *Store) Generic() string { return s.cfg.Generic }

// Get returns the loaded snapshot for a partition, if any. It never loads.
func (s *Store) Get(id string) (*Partition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[id]
	return p, ok
}

// EnsureLoaded loads the partition from disk if it is not loaded yet.
// Idempotent: once a partition loaded successfully it is never re-read.
// Every failure is logged and reported as false; the caller decides fallback.
func (s *Store) EnsureLoaded(ctx context.Context, id string) bool {
	s.mu.RLock()
	_, ok := s.parts[id]
	s.mu.RUnlock()
	if ok {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[id]; ok {
		return true
	}

	log := logger.FromContext(ctx).With(zap.String("partition", id))

	p, err := s.load(id, log)
	if err != nil {
		log.Warn("Partition load failed", zap.Error(err))
		metrics.PartitionLoadsTotal.WithLabelValues(id, "error").Inc()
		return false
	}
	s.parts[id] = p
	metrics.PartitionLoadsTotal.WithLabelValues(id, "success").Inc()
	log.Info("Partition loaded",
		zap.String("method", p.Method.String()),
		zap.Int("dimensions", p.Dimensions),
		zap.Int("documents", len(p.Documents)),
	)
	return true
}

// load reads and assembles one partition. Called with s.mu held, which also
// serializes the one-time self-heal write against concurrent loaders.
func (s *Store) load(id string, log *zap.Logger) (*Partition, error) {
	dir, ok := s.resolveDir(id)
	if !ok {
		return nil, fmt.Errorf("no artifact directory for %q: %w", id, domain.ErrPartitionNotFound)
	}

	storePath := filepath.Join(dir, storeFileName)
	data, err := os.ReadFile(storePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", storePath, err)
	}

	var sf storeFile
	if err := json.Unmarshal(data, &sf); err != nil {
		// Not even the envelope parsed. Salvage the payload as documents of
		// unknown shape rather than rejecting the partition outright.
		log.Warn("Store artifact is not a valid envelope, salvaging as raw documents",
			zap.String("path", storePath), zap.Error(err))
		sf = storeFile{Documents: json.RawMessage(data)}
	}

	method, recognized := domain.CanonicalMethod(sf.EmbeddingMethod)
	if !recognized {
		log.Warn("Unrecognized embedding method label, defaulting to neural encoder",
			zap.String("label", sf.EmbeddingMethod))
	} else if sf.EmbeddingMethod != method.String() {
		s.selfHeal(dir, sf, method, log)
	}

	docs := NormalizeDocuments(sf.Documents, id)

	indexPath := filepath.Join(dir, indexFileName)
	idx, err := index.LoadFlat(indexPath)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	if idx.Len() != len(docs) {
		return nil, fmt.Errorf("index has %d vectors but %d documents recovered",
			idx.Len(), len(docs))
	}

	dims := sf.Dimensions
	if dims == 0 {
		dims = idx.Dim()
	}

	return &Partition{
		ID:         id,
		Index:      idx,
		Documents:  docs,
		Method:     method,
		Dimensions: dims,
	}, nil
}

// selfHeal rewrites the persisted method label to its canonical form so
// future loads skip re-normalization. A one-time backup copy of the original
// artifact is taken before the first rewrite.
func (s *Store) selfHeal(dir string, sf storeFile, method domain.Method, log *zap.Logger) {
	storePath := filepath.Join(dir, storeFileName)
	backupPath := filepath.Join(dir, backupFileName)

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		original, err := os.ReadFile(storePath)
		if err != nil {
			log.Warn("Skipping method self-heal, cannot back up artifact", zap.Error(err))
			return
		}
		if err := os.WriteFile(backupPath, original, 0o644); err != nil {
			log.Warn("Skipping method self-heal, backup write failed", zap.Error(err))
			return
		}
	}

	healed := storeFile{
		EmbeddingMethod: method.String(),
		Dimensions:      sf.Dimensions,
		Documents:       sf.Documents,
	}
	out, err := json.Marshal(healed)
	if err != nil {
		log.Warn("Skipping method self-heal, marshal failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(storePath, out, 0o644); err != nil {
		log.Warn("Method self-heal write failed", zap.Error(err))
		return
	}
	log.Info("Self-healed embedding method label",
		zap.String("from", sf.EmbeddingMethod),
		zap.String("to", method.String()),
	)
}
