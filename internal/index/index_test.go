package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func brandStub() *stubEngine {
	eng := newStubEngine(4)
	eng.set("Brand tone is friendly.", 1, 0, 0, 0)
	eng.set("Forbidden word: cheap.", 0, 1, 0, 0)
	eng.set("What is the brand tone?", 0.9, 0.1, 0, 0)
	return eng
}

func TestSearch_RanksByDistance(t *testing.T) {
	ix := New(brandStub())
	ctx := context.Background()

	err := ix.AddDocuments(ctx, []string{"Brand tone is friendly.", "Forbidden word: cheap."})
	if err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}

	results, err := ix.Search(ctx, "What is the brand tone?", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Text != "Brand tone is friendly." {
		t.Errorf("rank-1 result = %q, want the tone chunk", results[0].Text)
	}
	if results[0].Rank != 1 {
		t.Errorf("rank = %d, want 1", results[0].Rank)
	}
}

func TestSearch_RelevanceMonotonic(t *testing.T) {
	ix := New(brandStub())
	ctx := context.Background()

	if err := ix.AddDocuments(ctx, []string{"Brand tone is friendly.", "Forbidden word: cheap."}); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}

	results, err := ix.Search(ctx, "What is the brand tone?", 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if results[0].Distance >= results[1].Distance {
		t.Errorf("distances not ascending: %v then %v", results[0].Distance, results[1].Distance)
	}
	if results[0].Relevance <= results[1].Relevance {
		t.Errorf("relevance not descending: %v then %v", results[0].Relevance, results[1].Relevance)
	}
	for _, r := range results {
		if r.Relevance <= 0 || r.Relevance > 1 {
			t.Errorf("relevance %v out of (0,1]", r.Relevance)
		}
	}
}

func TestSearch_ExactMatchIsTopWithRelevanceOne(t *testing.T) {
	ix := New(brandStub())
	ctx := context.Background()

	texts := []string{"Brand tone is friendly.", "Forbidden word: cheap."}
	if err := ix.AddDocuments(ctx, texts); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}

	// Querying with a stored text embeds identically, so distance is 0.
	results, err := ix.Search(ctx, texts[1], 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results[0].Text != texts[1] {
		t.Errorf("top result = %q, want exact chunk text", results[0].Text)
	}
	if results[0].Relevance != 1.0 {
		t.Errorf("relevance at distance 0 = %v, want 1.0", results[0].Relevance)
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	ix := New(brandStub())

	results, err := ix.Search(context.Background(), "anything", 3)
	if err != nil {
		t.Fatalf("Search on empty index should not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result list, got %d", len(results))
	}
}

func TestSearch_KLargerThanStore(t *testing.T) {
	ix := New(brandStub())
	ctx := context.Background()

	if err := ix.AddDocuments(ctx, []string{"Brand tone is friendly."}); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}

	results, err := ix.Search(ctx, "What is the brand tone?", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected all stored docs, got %d", len(results))
	}
}

func TestAddDocuments_BatchFailureLeavesIndexUnchanged(t *testing.T) {
	ix := New(failingEngine{})

	err := ix.AddDocuments(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error from failing engine")
	}
	if ix.Len() != 0 {
		t.Errorf("failed batch mutated the index: len=%d", ix.Len())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "brand_index.bin")
	docsPath := filepath.Join(dir, "brand_docs.json")

	eng := brandStub()
	ix := New(eng)
	ctx := context.Background()

	texts := []string{"Brand tone is friendly.", "Forbidden word: cheap."}
	if err := ix.AddDocuments(ctx, texts); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}
	if err := ix.Save(vecPath, docsPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := New(eng)
	if err := loaded.Load(vecPath, docsPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("loaded %d documents, want 2", loaded.Len())
	}

	// Alignment must survive the round trip: row i still answers for
	// documents[i].
	results, err := loaded.Search(ctx, "What is the brand tone?", 1)
	if err != nil {
		t.Fatalf("Search after load failed: %v", err)
	}
	if results[0].Text != "Brand tone is friendly." {
		t.Errorf("post-load rank-1 = %q", results[0].Text)
	}
}

func TestLoad_TruncatedVectorFileIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "brand_index.bin")
	docsPath := filepath.Join(dir, "brand_docs.json")

	ix := New(brandStub())
	ctx := context.Background()
	if err := ix.AddDocuments(ctx, []string{"Brand tone is friendly.", "Forbidden word: cheap."}); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}
	if err := ix.Save(vecPath, docsPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Cut the payload short: the header still declares 2 rows.
	data, err := os.ReadFile(vecPath)
	if err != nil {
		t.Fatalf("read vector file: %v", err)
	}
	if err := os.WriteFile(vecPath, data[:len(data)-8], 0644); err != nil {
		t.Fatalf("truncate vector file: %v", err)
	}

	loaded := New(brandStub())
	err = loaded.Load(vecPath, docsPath)
	if err == nil {
		t.Fatal("truncated vector file must not load")
	}
	if errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("corruption must not read as missing index: %v", err)
	}
}

func TestLoad_OversizedHeaderDoesNotAllocate(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "brand_index.bin")
	docsPath := filepath.Join(dir, "brand_docs.json")

	// Hand-craft a file whose header claims far more rows than the
	// payload holds.
	var buf bytes.Buffer
	for _, v := range []uint32{vectorMagic, 1 << 30, 768} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("write header: %v", err)
		}
	}
	if err := os.WriteFile(vecPath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write vector file: %v", err)
	}
	if err := os.WriteFile(docsPath, []byte(`[]`), 0644); err != nil {
		t.Fatalf("write docs file: %v", err)
	}

	ix := New(brandStub())
	if err := ix.Load(vecPath, docsPath); err == nil {
		t.Fatal("oversized header must be rejected")
	}
}

func TestLoad_MissingArtifactsAreFatal(t *testing.T) {
	dir := t.TempDir()
	ix := New(brandStub())

	err := ix.Load(filepath.Join(dir, "missing.bin"), filepath.Join(dir, "missing.json"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestLoad_MissingDocsFileIsFatal(t *testing.T) {
	dir := t.TempDir()
	vecPath := filepath.Join(dir, "brand_index.bin")
	docsPath := filepath.Join(dir, "brand_docs.json")

	ix := New(brandStub())
	if err := ix.AddDocuments(context.Background(), []string{"Brand tone is friendly."}); err != nil {
		t.Fatalf("AddDocuments failed: %v", err)
	}
	if err := ix.Save(vecPath, docsPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// One artifact without its sibling must not load.
	err := ix.Load(vecPath, filepath.Join(dir, "other.json"))
	if !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound for missing docs, got %v", err)
	}
}
