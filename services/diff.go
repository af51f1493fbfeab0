package services

import (
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"mnt-generator/models"
)

// FieldChange is one leaf-level difference between the stored field set and
// an incoming submission. Values are carried verbatim.
type FieldChange struct {
	FieldName  string            `json:"field_name"`
	FieldPath  string            `json:"field_path"`
	Label      string            `json:"label"`
	OldValue   string            `json:"old_value"`
	NewValue   string            `json:"new_value"`
	ChangeType models.ChangeType `json:"change_type"`
}

// HistoryEntry is one data row of the document's own history-of-changes
// table (Дата|Версия|Описание|Автор).
type HistoryEntry struct {
	Date        string
	Version     string
	Description string
	Author      string
}

var versionLabelRe = regexp.MustCompile(`^\d+\.\d+$`)

// ParseTable splits table-shaped field text into rows of trimmed cells.
// Rows are newline-separated, cells |-delimited; blank lines are skipped.
func ParseTable(text string) [][]string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := strings.Split(line, "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		rows = append(rows, cells)
	}
	return rows
}

// DataRows returns the rows after the header row.
func DataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

// placeholder rows are what the form's row-adding UI leaves behind: every
// cell empty or a lone dash.
func isPlaceholderRow(cells []string) bool {
	for _, cell := range cells {
		if cell != "" && cell != "-" {
			return false
		}
	}
	return true
}

func normalizeTable(text string) [][]string {
	var out [][]string
	for _, row := range ParseTable(text) {
		if isPlaceholderRow(row) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func scalarsEqual(oldValue, newValue string) bool {
	return strings.TrimSpace(oldValue) == strings.TrimSpace(newValue)
}

func tablesEqual(oldValue, newValue string) bool {
	return reflect.DeepEqual(normalizeTable(oldValue), normalizeTable(newValue))
}

func fieldsEqual(spec models.FieldSpec, oldValue, newValue string) bool {
	if spec.Kind == models.FieldTable {
		return tablesEqual(oldValue, newValue)
	}
	return scalarsEqual(oldValue, newValue)
}

func classifyChange(oldValue, newValue string) models.ChangeType {
	switch {
	case strings.TrimSpace(oldValue) == "":
		return models.ChangeCreate
	case strings.TrimSpace(newValue) == "":
		return models.ChangeDelete
	default:
		return models.ChangeUpdate
	}
}

// CompareFieldSets computes the content-field differences between the last
// persisted field set and an incoming one. Bookkeeping fields (author, the
// change description, the history table itself, image uploads) never count.
// Keys outside the registry are compared as scalars so the field set can
// grow without a code change.
func CompareFieldSets(oldFields, newFields map[string]string) []FieldChange {
	var changes []FieldChange

	seen := make(map[string]bool)
	for _, spec := range models.Fields {
		seen[spec.Key] = true
		if spec.Bookkeeping {
			continue
		}
		oldValue := oldFields[spec.Key]
		newValue := newFields[spec.Key]
		if fieldsEqual(spec, oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{
			FieldName:  spec.Key,
			FieldPath:  "data." + spec.Key,
			Label:      spec.Label,
			OldValue:   oldValue,
			NewValue:   newValue,
			ChangeType: classifyChange(oldValue, newValue),
		})
	}

	var extra []string
	for key := range oldFields {
		if !seen[key] {
			extra = append(extra, key)
			seen[key] = true
		}
	}
	for key := range newFields {
		if !seen[key] {
			extra = append(extra, key)
			seen[key] = true
		}
	}
	sort.Strings(extra)

	for _, key := range extra {
		oldValue := oldFields[key]
		newValue := newFields[key]
		if scalarsEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, FieldChange{
			FieldName:  key,
			FieldPath:  "data." + key,
			Label:      models.FieldLabel(key),
			OldValue:   oldValue,
			NewValue:   newValue,
			ChangeType: classifyChange(oldValue, newValue),
		})
	}

	return changes
}

// ParseHistoryTable extracts the data rows of the history-of-changes table.
func ParseHistoryTable(text string) []HistoryEntry {
	var entries []HistoryEntry
	for _, row := range DataRows(ParseTable(text)) {
		if isPlaceholderRow(row) || len(row) < 2 {
			continue
		}
		entry := HistoryEntry{Date: row[0], Version: row[1]}
		if len(row) > 2 {
			entry.Description = row[2]
		}
		if len(row) > 3 {
			entry.Author = row[3]
		}
		entries = append(entries, entry)
	}
	return entries
}

// LatestHistoryVersion returns the numerically highest X.Y version label in
// the history table, or "" when there is none.
func LatestHistoryVersion(text string) string {
	latest := ""
	latestMajor, latestMinor := -1, -1
	for _, entry := range ParseHistoryTable(text) {
		if !versionLabelRe.MatchString(entry.Version) {
			continue
		}
		parts := strings.SplitN(entry.Version, ".", 2)
		major, _ := strconv.Atoi(parts[0])
		minor, _ := strconv.Atoi(parts[1])
		if major > latestMajor || (major == latestMajor && minor > latestMinor) {
			latest = entry.Version
			latestMajor, latestMinor = major, minor
		}
	}
	return latest
}

// AddedHistoryEntry reports the row the user appended to the history table
// in this submission, or nil when no row was added.
func AddedHistoryEntry(oldTable, newTable string) *HistoryEntry {
	oldEntries := ParseHistoryTable(oldTable)
	newEntries := ParseHistoryTable(newTable)
	if len(newEntries) <= len(oldEntries) {
		return nil
	}
	added := newEntries[len(newEntries)-1]
	return &added
}

// NextVersionNumber increments an X.Y label: 0.1 -> 0.2, 0.9 -> 1.0.
// Unparseable input restarts at 0.1.
func NextVersionNumber(version string) string {
	if !versionLabelRe.MatchString(version) {
		return "0.1"
	}
	parts := strings.SplitN(version, ".", 2)
	major, _ := strconv.Atoi(parts[0])
	minor, _ := strconv.Atoi(parts[1])
	minor++
	if minor >= 10 {
		major++
		minor = 0
	}
	return strconv.Itoa(major) + "." + strconv.Itoa(minor)
}

const historyTableHeader = "Дата|Версия|Описание|Автор"

// AppendHistoryEntry adds a new row to the history-of-changes table,
// allocating the next version label from the table's own newest entry.
// An empty table gets the header and a first 0.1 entry.
func AppendHistoryEntry(current, author, description string, now time.Time) string {
	date := now.Format("02.01.2006")

	if strings.TrimSpace(current) == "" || len(ParseTable(current)) < 2 {
		header := historyTableHeader
		if rows := ParseTable(current); len(rows) == 1 {
			header = strings.Join(rows[0], "|")
		}
		return header + "\n" + date + "|0.1|" + description + "|" + author
	}

	version := NextVersionNumber(LatestHistoryVersion(current))
	return strings.TrimRight(current, "\n") + "\n" + date + "|" + version + "|" + description + "|" + author
}
