package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFileAt(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSelectFileByRank(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	writeFileAt(t, filepath.Join(dir, "a.log"), "a", base)
	writeFileAt(t, filepath.Join(dir, "b.log"), "b", base.Add(10*time.Second))
	writeFileAt(t, filepath.Join(dir, "c.txt"), "c", base.Add(20*time.Second))

	dirs := []string{dir}
	if got, ok := SelectFile(dirs, ".log", 0); !ok || filepath.Base(got) != "b.log" {
		t.Errorf("rank 0 = %q, %v; want b.log", got, ok)
	}
	if got, ok := SelectFile(dirs, ".log", 1); !ok || filepath.Base(got) != "a.log" {
		t.Errorf("rank 1 = %q, %v; want a.log", got, ok)
	}
	if got, ok := SelectFile(dirs, ".log", 2); ok {
		t.Errorf("rank 2 = %q; want no file", got)
	}
	if _, ok := SelectFile(dirs, ".log", -1); ok {
		t.Error("negative rank should select nothing")
	}
}

func TestRankFilesAcrossDirectories(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	base := time.Now().Add(-time.Hour)

	writeFileAt(t, filepath.Join(first, "old.jsonl"), "{}", base)
	writeFileAt(t, filepath.Join(second, "new.jsonl"), "{}", base.Add(time.Minute))
	writeFileAt(t, filepath.Join(second, "mid.jsonl"), "{}", base.Add(30*time.Second))
	if err := os.Mkdir(filepath.Join(first, "nested.jsonl"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFileAt(t, filepath.Join(first, "nested.jsonl", "deep.jsonl"), "{}", base.Add(2*time.Minute))

	ranked := RankFiles([]string{missing, first, second}, ".jsonl")
	var names []string
	for _, c := range ranked {
		names = append(names, filepath.Base(c.Path))
	}
	want := []string{"new.jsonl", "mid.jsonl", "old.jsonl"}
	if len(names) != len(want) {
		t.Fatalf("ranked = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ranked[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestRankFilesTiesAreDeterministic(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Now().Add(-time.Hour)
	for _, name := range []string{"c.jsonl", "a.jsonl", "b.jsonl"} {
		writeFileAt(t, filepath.Join(dir, name), "{}", mtime)
	}

	first := RankFiles([]string{dir}, ".jsonl")
	second := RankFiles([]string{dir}, ".jsonl")
	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 candidates, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Path != second[i].Path {
			t.Errorf("order differs at %d: %s vs %s", i, first[i].Path, second[i].Path)
		}
	}
	if filepath.Base(first[0].Path) != "a.jsonl" {
		t.Errorf("ties should keep listing order, got %s first", first[0].Path)
	}
}

func TestMatchesExt(t *testing.T) {
	dirs := []string{"/tmp/projects/x"}
	if !matchesExt(dirs, ".jsonl", "/tmp/projects/x/s.jsonl") {
		t.Error("expected match")
	}
	if matchesExt(dirs, ".jsonl", "/tmp/projects/x/s.json") {
		t.Error("wrong extension matched")
	}
	if matchesExt(dirs, ".jsonl", "/tmp/projects/x/sub/s.jsonl") {
		t.Error("nested file matched")
	}
}
