package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index")
	if err := os.Mkdir(index, 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		filepath.Join(dir, "kiku.yaml"):      "hello",
		filepath.Join(index, "vectors.bin"):  "ab",
		filepath.Join(index, "documents.db"): "c",
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg := filepath.Join(dir, "kiku.yaml")

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{cfg}, 5},
		{"directory", []string{index}, 3},
		{"file and directory", []string{cfg, index}, 8},
		{"missing path skipped", []string{cfg, filepath.Join(dir, "nonexistent"), index}, 8},
		{"empty path skipped", []string{"", cfg}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
