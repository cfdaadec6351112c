package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func tempSite(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempSite(t)
	content := []byte("---\ntitle: Hello\n---\n\nWorld\n")
	if err := s.Write("_sentences/hello.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("_sentences/hello.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := tempSite(t)
	items, err := s.List("_does_not_exist")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestListSkipsNonMarkdown(t *testing.T) {
	s := tempSite(t)
	_ = s.Write("_links/a.md", []byte("a"))
	_ = s.Write("_links/b.md", []byte("b"))
	if err := os.WriteFile(filepath.Join(s.Root(), "_links", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := s.List("_links")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2", len(items))
	}
}

func TestDelete(t *testing.T) {
	s := tempSite(t)
	_ = s.Write("_random/del.md", []byte("bye"))
	if err := s.Delete("_random/del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists("_random/del.md") {
		t.Error("file should be gone")
	}
}

func TestMoveAcrossDirs(t *testing.T) {
	s := tempSite(t)
	_ = s.Write("_random/thought.md", []byte("data"))
	if err := s.Move("_random/thought.md", "_sentences/thought.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if s.Exists("_random/thought.md") {
		t.Error("source should be gone")
	}
	got, err := s.Read("_sentences/thought.md")
	if err != nil {
		t.Fatalf("Read after move: %v", err)
	}
	if string(got) != "data" {
		t.Errorf("content = %q", got)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempSite(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempSite(t)
	_ = s.Write("_posts/a.md", []byte("original"))
	if err := s.Write("_posts/a.md", []byte("updated")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("_posts/a.md")
	if string(got) != "updated" {
		t.Errorf("content = %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), "_posts", ".ansuz-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}
