package images

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDiskStoreSave(t *testing.T) {
	dir := t.TempDir()
	st := NewDiskStore(dir, "http://localhost:8080/images/")

	url, err := st.Save(context.Background(), "post-7.webp", []byte("bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if url != "http://localhost:8080/images/post-7.webp" {
		t.Errorf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "post-7.webp"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "bytes" {
		t.Errorf("stored data = %q", data)
	}
}

func TestDiskStoreStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	st := NewDiskStore(dir, "http://localhost:8080/images")

	url, err := st.Save(context.Background(), "../../etc/passwd", []byte("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "http://localhost:8080/images/passwd" {
		t.Errorf("url = %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "passwd")); err != nil {
		t.Errorf("file not written inside the store dir: %v", err)
	}
}
