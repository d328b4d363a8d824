package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestLoadJSON(t *testing.T) {
	file, err := LoadJSON(filepath.Join("testdata", "knowledge.json"))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if file.Total() != 7 {
		t.Errorf("Total = %d, want 7", file.Total())
	}
	if file.Experiments[0].Name != "Super Stretchy Slime" {
		t.Errorf("first experiment = %q", file.Experiments[0].Name)
	}
}

func TestLoadJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadJSON(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()

	wb.SetSheetName("Sheet1", "experiments")
	rows := [][]any{
		{"id", "name", "description", "category", "age_min", "age_max", "wow_factor", "safety_notes"},
		{"exp-1", "Volcano", "Baking soda meets vinegar.", "chemistry", "5", "10", "8", "Wear goggles"},
		{"", "Magnet Maze", "Guide a paperclip with a magnet.", "physics", "", "", "6", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetSheetRow("experiments", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := wb.NewSheet("qa_pairs"); err != nil {
		t.Fatal(err)
	}
	qaRows := [][]any{
		{"question", "answer", "topic", "difficulty"},
		{"Why do magnets stick?", "Magnetic fields pull on certain metals.", "physics", "easy"},
	}
	for i, row := range qaRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := wb.SetSheetRow("qa_pairs", cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := wb.NewSheet("notes"); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "knowledge.xlsx")
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestLoadXLSX(t *testing.T) {
	file, err := LoadXLSX(writeWorkbook(t))
	if err != nil {
		t.Fatalf("LoadXLSX: %v", err)
	}
	if len(file.Experiments) != 2 {
		t.Fatalf("experiments = %d, want 2", len(file.Experiments))
	}
	exp := file.Experiments[0]
	if exp.ID != "exp-1" || exp.AgeMin != 5 || exp.WowFactor != 8 {
		t.Errorf("experiment = %+v", exp)
	}
	if file.Experiments[1].ID != "" {
		t.Errorf("blank id column should stay empty, got %q", file.Experiments[1].ID)
	}
	if len(file.QAPairs) != 1 || file.QAPairs[0].Question != "Why do magnets stick?" {
		t.Errorf("qa pairs = %+v", file.QAPairs)
	}
	if len(file.Concepts) != 0 && len(file.Passages) != 0 {
		t.Error("unexpected records from absent sheets")
	}
}

func TestLoadFileDispatch(t *testing.T) {
	if _, err := LoadFile("knowledge.txt"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
	if _, err := LoadFile(filepath.Join("testdata", "knowledge.json")); err != nil {
		t.Errorf("json dispatch: %v", err)
	}
}
