package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadFile parses a knowledge file by extension. JSON and XLSX are supported.
func LoadFile(path string) (*KnowledgeFile, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported knowledge file type %q", filepath.Ext(path))
	}
}

// LoadJSON parses a JSON knowledge file.
func LoadJSON(path string) (*KnowledgeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var file KnowledgeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return &file, nil
}

// Sheet names recognized in XLSX knowledge files. Curators author one sheet
// per collection; other sheets are ignored so workbooks can carry notes.
const (
	sheetExperiments = "experiments"
	sheetQAPairs     = "qa_pairs"
	sheetConcepts    = "concepts"
	sheetPassages    = "passages"
)

// LoadXLSX parses an XLSX knowledge workbook. The first row of each sheet is
// a header naming the record fields; unknown columns are ignored.
func LoadXLSX(path string) (*KnowledgeFile, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	var file KnowledgeFile
	for _, sheet := range wb.GetSheetList() {
		name := strings.ToLower(strings.TrimSpace(sheet))
		switch name {
		case sheetExperiments, sheetQAPairs, sheetConcepts, sheetPassages:
		default:
			continue
		}
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		header := rows[0]
		for _, row := range rows[1:] {
			fields := rowFields(header, row)
			if len(fields) == 0 {
				continue
			}
			switch name {
			case sheetExperiments:
				file.Experiments = append(file.Experiments, ExperimentRecord{
					ID:          fields["id"],
					Name:        fields["name"],
					Description: fields["description"],
					Category:    fields["category"],
					AgeMin:      atoiOrZero(fields["age_min"]),
					AgeMax:      atoiOrZero(fields["age_max"]),
					WowFactor:   atoiOrZero(fields["wow_factor"]),
					SafetyNotes: fields["safety_notes"],
				})
			case sheetQAPairs:
				file.QAPairs = append(file.QAPairs, QAPairRecord{
					ID:           fields["id"],
					Question:     fields["question"],
					Answer:       fields["answer"],
					Topic:        fields["topic"],
					Difficulty:   fields["difficulty"],
					AgeMin:       atoiOrZero(fields["age_min"]),
					AgeMax:       atoiOrZero(fields["age_max"]),
					Experiment:   fields["experiment"],
					ExperimentID: fields["experiment_id"],
				})
			case sheetConcepts:
				file.Concepts = append(file.Concepts, ConceptRecord{
					ID:          fields["id"],
					Name:        fields["name"],
					Description: fields["description"],
					Topic:       fields["topic"],
					AgeMin:      atoiOrZero(fields["age_min"]),
					AgeMax:      atoiOrZero(fields["age_max"]),
				})
			case sheetPassages:
				file.Passages = append(file.Passages, PassageRecord{
					ID:         fields["id"],
					Text:       fields["text"],
					Topic:      fields["topic"],
					Experiment: fields["experiment"],
					AgeMin:     atoiOrZero(fields["age_min"]),
					AgeMax:     atoiOrZero(fields["age_max"]),
				})
			}
		}
	}
	return &file, nil
}

// rowFields zips a header row with a data row into a field map. Blank rows
// return nil.
func rowFields(header, row []string) map[string]string {
	fields := make(map[string]string, len(header))
	empty := true
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || i >= len(row) {
			continue
		}
		val := strings.TrimSpace(row[i])
		if val != "" {
			empty = false
		}
		fields[name] = val
	}
	if empty {
		return nil
	}
	return fields
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
