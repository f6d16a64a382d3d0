package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/medloom/internal/utils"
)

func TestSafeWriteFileCreatesParentAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")
	if err := utils.SafeWriteFile(path, []byte("{}")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "{}" {
		t.Fatalf("unexpected content %q", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
	if !utils.FileExists(path) {
		t.Fatalf("FileExists should report the written file")
	}
	if utils.FileExists(dir) {
		t.Fatalf("FileExists should be false for directories")
	}
}

func TestPrettyJSONTrailingNewline(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("PrettyJSON: %v", err)
	}
	want := "{\n  \"a\": 1,\n  \"b\": 2\n}\n"
	if string(b) != want {
		t.Fatalf("got %q want %q", b, want)
	}
}
