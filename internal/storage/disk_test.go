package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1.json")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := DiskUsage(f1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 1 || got.Bytes != 5 {
		t.Errorf("single file: got %+v", got)
	}

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644)
	_ = os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644)
	got, err = DiskUsage(sub)
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 2 || got.Bytes != 3 {
		t.Errorf("directory: got %+v", got)
	}

	got, err = DiskUsage(dir, filepath.Join(dir, "missing"), "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Files != 3 || got.Bytes != 8 {
		t.Errorf("tree: got %+v", got)
	}
}
