package partition

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/farmsense/poultryqa/internal/config"
	"github.com/farmsense/poultryqa/internal/domain"
	"github.com/farmsense/poultryqa/internal/index"
)

func writePartition(t *testing.T, dir, method string, docs []string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	sf := map[string]any{
		"embedding_method": method,
		"documents":        docs,
	}
	data, err := json.Marshal(sf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, storeFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	vecs := make([][]float32, len(docs))
	for i := range vecs {
		vecs[i] = []float32{float32(i), 1, 0, 0}
	}
	idx, err := index.NewFlat(vecs)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, indexFileName), idx.EncodeFlat(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestStore(root string) *Store {
	cfg := config.PartitionsConfig{
		RootDir: root,
		Generic: "general",
	}
	return New(cfg, []string{"broilers", "layers"}, zap.NewNop())
}

func TestEnsureLoaded_Idempotent(t *testing.T) {
	root := t.TempDir()
	writePartition(t, filepath.Join(root, "broilers"), "neural", []string{"a", "b", "c"})

	s := newTestStore(root)
	ctx := context.Background()

	if !s.EnsureLoaded(ctx, "broilers") {
		t.Fatal("first load failed")
	}
	first, _ := s.Get("broilers")

	// Corrupt the artifact after the first load: a cached partition must
	// never be re-read.
	if err := os.WriteFile(filepath.Join(root, "broilers", storeFileName), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !s.EnsureLoaded(ctx, "broilers") {
		t.Fatal("second load failed")
	}
	second, _ := s.Get("broilers")
	if first != second {
		t.Error("loaded snapshot must be reused, not re-read")
	}
	if len(second.Documents) != 3 {
		t.Errorf("expected 3 documents, got %d", len(second.Documents))
	}
}

func TestEnsureLoaded_MissingPartition(t *testing.T) {
	s := newTestStore(t.TempDir())

	if s.EnsureLoaded(context.Background(), "layers") {
		t.Fatal("expected load failure for missing partition")
	}
	if _, ok := s.Get("layers"); ok {
		t.Error("failed load must not cache a snapshot")
	}
}

func TestEnsureLoaded_SelfHealsMethodLabel(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broilers")
	writePartition(t, dir, "huggingface", []string{"a", "b"})

	s := newTestStore(root)
	if !s.EnsureLoaded(context.Background(), "broilers") {
		t.Fatal("load failed")
	}

	p, _ := s.Get("broilers")
	if p.Method != domain.MethodNeural {
		t.Errorf("method %q, want %q", p.Method, domain.MethodNeural)
	}

	backup, err := os.ReadFile(filepath.Join(dir, backupFileName))
	if err != nil {
		t.Fatalf("backup must exist after self-heal: %v", err)
	}
	var original storeFile
	if err := json.Unmarshal(backup, &original); err != nil {
		t.Fatal(err)
	}
	if original.EmbeddingMethod != "huggingface" {
		t.Errorf("backup must keep the original label, got %q", original.EmbeddingMethod)
	}

	healed, err := os.ReadFile(filepath.Join(dir, storeFileName))
	if err != nil {
		t.Fatal(err)
	}
	var sf storeFile
	if err := json.Unmarshal(healed, &sf); err != nil {
		t.Fatal(err)
	}
	if sf.EmbeddingMethod != domain.MethodNeural.String() {
		t.Errorf("store must be rewritten to %q, got %q", domain.MethodNeural, sf.EmbeddingMethod)
	}
}

func TestEnsureLoaded_BackupCreatedOnce(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broilers")
	writePartition(t, dir, "huggingface", []string{"a"})

	if !newTestStore(root).EnsureLoaded(context.Background(), "broilers") {
		t.Fatal("first load failed")
	}
	firstBackup, err := os.ReadFile(filepath.Join(dir, backupFileName))
	if err != nil {
		t.Fatal(err)
	}

	// Re-introduce a non-canonical label and reload in a fresh process
	// (fresh store): the existing backup must not be overwritten.
	healed, err := os.ReadFile(filepath.Join(dir, storeFileName))
	if err != nil {
		t.Fatal(err)
	}
	var sf storeFile
	if err := json.Unmarshal(healed, &sf); err != nil {
		t.Fatal(err)
	}
	sf.EmbeddingMethod = "sbert"
	relabeled, err := json.Marshal(sf)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, storeFileName), relabeled, 0o644); err != nil {
		t.Fatal(err)
	}

	if !newTestStore(root).EnsureLoaded(context.Background(), "broilers") {
		t.Fatal("second load failed")
	}
	secondBackup, err := os.ReadFile(filepath.Join(dir, backupFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(firstBackup) != string(secondBackup) {
		t.Error("backup must be written only on the first self-heal")
	}
}

func TestEnsureLoaded_DocumentCountMismatch(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broilers")
	writePartition(t, dir, "neural", []string{"a", "b", "c"})

	// Shrink the document list without rebuilding the index.
	sf := map[string]any{"embedding_method": "neural", "documents": []string{"a"}}
	data, _ := json.Marshal(sf)
	if err := os.WriteFile(filepath.Join(dir, storeFileName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if newTestStore(root).EnsureLoaded(context.Background(), "broilers") {
		t.Fatal("mismatched document/vector counts must fail the load")
	}
}

func TestResolveDir_OverridePrecedence(t *testing.T) {
	root := t.TempDir()
	override := t.TempDir()
	writePartition(t, filepath.Join(root, "broilers"), "neural", []string{"root copy"})
	writePartition(t, filepath.Join(override, "broilers-v2"), "neural", []string{"override copy", "x"})

	cfg := config.PartitionsConfig{
		RootDir:   root,
		Overrides: map[string]string{"broilers": filepath.Join(override, "broilers-v2")},
		Generic:   "general",
	}
	s := New(cfg, []string{"broilers"}, zap.NewNop())

	if !s.EnsureLoaded(context.Background(), "broilers") {
		t.Fatal("load failed")
	}
	p, _ := s.Get("broilers")
	if len(p.Documents) != 2 || p.Documents[0].Content != "override copy" {
		t.Error("override path must win over the root directory")
	}
}

func TestIDs_IncludesGeneric(t *testing.T) {
	s := newTestStore(t.TempDir())

	ids := s.IDs()
	found := false
	for _, id := range ids {
		if id == "general" {
			found = true
		}
	}
	if !found {
		t.Errorf("generic partition missing from ids %v", ids)
	}
}
