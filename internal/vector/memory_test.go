package vector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %s,%s", results[0].ID, results[1].ID)
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"first", "second", "third"}, [][]float32{{1, 0}, {1, 0}, {1, 0}})
	for i := 0; i < 5; i++ {
		res, _ := idx.Search(ctx, []float32{1, 0}, 3)
		if res[0].ID != "first" || res[1].ID != "second" || res[2].ID != "third" {
			t.Fatalf("unstable order: %v %v %v", res[0].ID, res[1].ID, res[2].ID)
		}
	}
}

func TestMemoryIndex_KLargerThanSize(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	_ = idx.Add(context.Background(), []string{"x"}, [][]float32{{1, 0}})
	res, err := idx.Search(context.Background(), []float32{1, 0}, 10)
	if err != nil || len(res) != 1 {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"x"}, [][]float32{{1, 0, 0}}); err == nil {
		t.Error("expected add error")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected search error")
	}
}

func TestMemoryIndex_SaveLoad(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewMemoryIndex(2)
	_ = idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	path := filepath.Join(t.TempDir(), "sub", "index.bin")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadMemoryIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 || loaded.Dimensions() != 2 {
		t.Fatalf("size=%d dims=%d", loaded.Size(), loaded.Dimensions())
	}
	res, _ := loaded.Search(ctx, []float32{0, 1}, 1)
	if res[0].ID != "y" {
		t.Errorf("top = %s", res[0].ID)
	}
}

func TestLoadMemoryIndex_Corrupt(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(bad, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMemoryIndex(bad); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("err = %v", err)
	}

	idx, _ := NewMemoryIndex(4)
	_ = idx.Add(context.Background(), []string{"x"}, [][]float32{{1, 2, 3, 4}})
	good := filepath.Join(dir, "good.bin")
	_ = idx.Save(good)
	data, _ := os.ReadFile(good)
	truncated := filepath.Join(dir, "trunc.bin")
	_ = os.WriteFile(truncated, data[:len(data)-3], 0644)
	if _, err := LoadMemoryIndex(truncated); !errors.Is(err, ErrCorruptIndex) {
		t.Errorf("truncated err = %v", err)
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 2}, []float32{3, 4}); got != 11 {
		t.Errorf("got %f", got)
	}
	if got := InnerProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("mismatched lengths should give 0, got %f", got)
	}
}
