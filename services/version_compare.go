package services

import (
	"fmt"
	"sort"
	"strings"

	"mnt-generator/models"
)

// TextFieldDiff describes a scalar field that differs between two versions,
// with a line-oriented diff of the values.
type TextFieldDiff struct {
	FieldName string   `json:"field_name"`
	Label     string   `json:"label"`
	OldValue  string   `json:"old_value"`
	NewValue  string   `json:"new_value"`
	DiffLines []string `json:"diff_lines"`
}

// CellChange is a single modified cell inside a table row.
type CellChange struct {
	ColumnIndex int    `json:"column_index"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
}

// TableRowDiff describes one added, removed, or modified row. Rows are
// matched by their first cell, which the form treats as the row key.
type TableRowDiff struct {
	Key         string       `json:"key"`
	ChangeType  string       `json:"change_type"`
	Row         []string     `json:"row,omitempty"`
	CellChanges []CellChange `json:"cell_changes,omitempty"`
}

// TableFieldDiff groups the row diffs of one table field.
type TableFieldDiff struct {
	FieldName string         `json:"field_name"`
	Label     string         `json:"label"`
	Rows      []TableRowDiff `json:"rows"`
}

// MetadataChange is a before/after pair for title, project, author or tags.
type MetadataChange struct {
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// VersionComparison is the full result of comparing two snapshots.
type VersionComparison struct {
	FromVersion     string                    `json:"from_version"`
	ToVersion       string                    `json:"to_version"`
	FieldsChanged   []TextFieldDiff           `json:"fields_changed"`
	TablesChanged   []TableFieldDiff          `json:"tables_changed"`
	MetadataChanged map[string]MetadataChange `json:"metadata_changed"`
	Summary         string                    `json:"summary"`
}

// CompareVersions diffs two version snapshots field by field.
func CompareVersions(from, to *models.DocumentVersion) VersionComparison {
	cmp := VersionComparison{
		FromVersion:     from.VersionNumber,
		ToVersion:       to.VersionNumber,
		FieldsChanged:   []TextFieldDiff{},
		TablesChanged:   []TableFieldDiff{},
		MetadataChanged: map[string]MetadataChange{},
	}

	oldFields := models.FieldSet(from.Data)
	newFields := models.FieldSet(to.Data)

	for _, key := range unionKeys(oldFields, newFields) {
		if key == "tags" {
			// reported under metadata
			continue
		}
		spec, known := models.FieldByKey(key)
		if known && spec.Bookkeeping {
			continue
		}
		oldVal, newVal := oldFields[key], newFields[key]
		if known && spec.Kind == models.FieldTable {
			if tablesEqual(oldVal, newVal) {
				continue
			}
			cmp.TablesChanged = append(cmp.TablesChanged, TableFieldDiff{
				FieldName: key,
				Label:     models.FieldLabel(key),
				Rows:      diffTableRows(oldVal, newVal),
			})
			continue
		}
		if scalarsEqual(oldVal, newVal) {
			continue
		}
		cmp.FieldsChanged = append(cmp.FieldsChanged, TextFieldDiff{
			FieldName: key,
			Label:     models.FieldLabel(key),
			OldValue:  oldVal,
			NewValue:  newVal,
			DiffLines: diffLines(oldVal, newVal),
		})
	}

	addMetadata := func(name, oldVal, newVal string) {
		if strings.TrimSpace(oldVal) != strings.TrimSpace(newVal) {
			cmp.MetadataChanged[name] = MetadataChange{OldValue: oldVal, NewValue: newVal}
		}
	}
	addMetadata("title", from.Title, to.Title)
	addMetadata("project", from.Project, to.Project)
	addMetadata("author", from.Author, to.Author)
	addMetadata("tags", normalizeTagList(oldFields["tags"]), normalizeTagList(newFields["tags"]))

	cmp.Summary = comparisonSummary(cmp)
	return cmp
}

func unionKeys(a, b map[string]string) []string {
	seen := map[string]bool{}
	keys := make([]string, 0, len(a)+len(b))
	for _, spec := range models.Fields {
		if a[spec.Key] != "" || b[spec.Key] != "" {
			seen[spec.Key] = true
			keys = append(keys, spec.Key)
		}
	}
	extra := []string{}
	for k := range a {
		if !seen[k] {
			seen[k] = true
			extra = append(extra, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// diffLines produces a minimal unified-style view: removed lines prefixed
// with "- ", added lines with "+ ", unchanged lines with "  ". Lines are
// matched positionally, which is enough for short form fields.
func diffLines(oldVal, newVal string) []string {
	oldLines := splitLines(oldVal)
	newLines := splitLines(newVal)
	out := []string{}
	n := len(oldLines)
	if len(newLines) > n {
		n = len(newLines)
	}
	for i := 0; i < n; i++ {
		switch {
		case i >= len(oldLines):
			out = append(out, "+ "+newLines[i])
		case i >= len(newLines):
			out = append(out, "- "+oldLines[i])
		case oldLines[i] == newLines[i]:
			out = append(out, "  "+oldLines[i])
		default:
			out = append(out, "- "+oldLines[i], "+ "+newLines[i])
		}
	}
	return out
}

func splitLines(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

func diffTableRows(oldVal, newVal string) []TableRowDiff {
	oldRows := normalizeTable(oldVal)
	newRows := normalizeTable(newVal)

	oldByKey := map[string][]string{}
	oldOrder := []string{}
	for _, row := range oldRows {
		key := rowKey(row)
		if _, dup := oldByKey[key]; !dup {
			oldByKey[key] = row
			oldOrder = append(oldOrder, key)
		}
	}

	diffs := []TableRowDiff{}
	seen := map[string]bool{}
	for _, row := range newRows {
		key := rowKey(row)
		seen[key] = true
		oldRow, existed := oldByKey[key]
		if !existed {
			diffs = append(diffs, TableRowDiff{Key: key, ChangeType: "added", Row: row})
			continue
		}
		cells := diffCells(oldRow, row)
		if len(cells) > 0 {
			diffs = append(diffs, TableRowDiff{Key: key, ChangeType: "modified", Row: row, CellChanges: cells})
		}
	}
	for _, key := range oldOrder {
		if !seen[key] {
			diffs = append(diffs, TableRowDiff{Key: key, ChangeType: "removed", Row: oldByKey[key]})
		}
	}
	return diffs
}

func rowKey(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

func diffCells(oldRow, newRow []string) []CellChange {
	changes := []CellChange{}
	n := len(oldRow)
	if len(newRow) > n {
		n = len(newRow)
	}
	for i := 0; i < n; i++ {
		oldCell, newCell := "", ""
		if i < len(oldRow) {
			oldCell = oldRow[i]
		}
		if i < len(newRow) {
			newCell = newRow[i]
		}
		if oldCell != newCell {
			changes = append(changes, CellChange{ColumnIndex: i, OldValue: oldCell, NewValue: newCell})
		}
	}
	return changes
}

func normalizeTagList(raw string) string {
	parts := strings.Split(raw, ",")
	tags := []string{}
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return strings.Join(tags, ", ")
}

func comparisonSummary(cmp VersionComparison) string {
	parts := []string{}
	if n := len(cmp.FieldsChanged); n > 0 {
		parts = append(parts, fmt.Sprintf("текстовых полей: %d", n))
	}
	if n := len(cmp.TablesChanged); n > 0 {
		parts = append(parts, fmt.Sprintf("таблиц: %d", n))
	}
	if n := len(cmp.MetadataChanged); n > 0 {
		parts = append(parts, fmt.Sprintf("метаданных: %d", n))
	}
	if len(parts) == 0 {
		return "Изменений нет"
	}
	return "Изменено " + strings.Join(parts, ", ")
}
