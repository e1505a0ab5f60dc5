package store

import (
	"context"
	"testing"
)

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t, 2)
	src.Insert(ctx, InsertParams{Text: "first", Embedding: []float32{1, 0}, SessionID: "S"})
	src.Insert(ctx, InsertParams{Text: "second", Embedding: []float32{0, 1}, SessionID: "S"})

	chunks, err := ExportAll(ctx, src, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Text != "first" {
		t.Fatalf("expected oldest first, got %+v", chunks)
	}

	dst := newTestMemStore(t, 2)
	n, err := Import(ctx, dst, chunks)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 imported, got %d", n)
	}

	got, _ := dst.SearchSimilar(ctx, []float32{0, 1}, 1)
	if len(got) != 1 || got[0].Text != "second" || got[0].SessionID != "S" {
		t.Errorf("unexpected search after import %+v", got)
	}
}

func TestImportRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t, 2)
	src.InsertChunk(ctx, "x", []float32{1, 0})
	chunks, _ := ExportAll(ctx, src, "")

	dst := newTestStore(t, 3)
	n, err := Import(ctx, dst, chunks)
	if err == nil || n != 0 {
		t.Errorf("expected import failure, got n=%d err=%v", n, err)
	}
}

func TestCollectStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 2)
	s.Insert(ctx, InsertParams{Text: "a", Embedding: []float32{1, 0}, SessionID: "S1"})
	s.Insert(ctx, InsertParams{Text: "b", Embedding: []float32{1, 0}, SessionID: "S2"})

	st, err := CollectStats(ctx, s, s.Path())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalChunks != 2 || st.Dimension != 2 || len(st.Sessions) != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if st.DBSizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
}
