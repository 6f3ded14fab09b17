package vars

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "users.csv", "first,last\nJohn,Smith\nJane,Jones\n")

	s := NewStore()
	if err := s.LoadFile("users", "users.csv", KindSequential, true, dir); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	// Columns draw as a row-aligned combination group.
	first, _ := s.Draw("first", "u1")
	last, _ := s.Draw("last", "u1")
	if first != "John" || last != "Smith" {
		t.Errorf("row 1: expected John Smith, got %s %s", first, last)
	}
	first, _ = s.Draw("first", "u1")
	last, _ = s.Draw("last", "u1")
	if first != "Jane" || last != "Jones" {
		t.Errorf("row 2: expected Jane Jones, got %s %s", first, last)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.json", `[{"id":"1","total":9.5},{"id":"2","total":12}]`)

	s := NewStore()
	if err := s.LoadFile("orders", "orders.json", KindSequential, true, dir); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	id, _ := s.Draw("id", "u1")
	total, _ := s.Draw("total", "u1")
	if id != "1" || total != "9.5" {
		t.Errorf("row 1: expected (1, 9.5), got (%s, %s)", id, total)
	}
}

func TestLoadFile_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.txt", "nope")

	s := NewStore()
	if err := s.LoadFile("d", "data.txt", KindSequential, true, dir); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFile_CSVMissingRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "empty.csv", "only,header\n")

	s := NewStore()
	if err := s.LoadFile("e", "empty.csv", KindSequential, true, dir); err == nil {
		t.Error("expected error for CSV without data rows")
	}
}
