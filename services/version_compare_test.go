package services

import (
	"testing"

	"mnt-generator/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func versionFixture(number string, data map[string]interface{}) *models.DocumentVersion {
	return &models.DocumentVersion{
		VersionNumber: number,
		Title:         "МНТ Проект Альфа",
		Project:       "Альфа",
		Author:        "Иванов",
		Data:          datatypes.JSONMap(data),
	}
}

func TestCompareVersionsTextFields(t *testing.T) {
	from := versionFixture("0.1", map[string]interface{}{
		"introduction_text": "Первая строка\nВторая строка",
	})
	to := versionFixture("0.2", map[string]interface{}{
		"introduction_text": "Первая строка\nИзмененная строка\nТретья строка",
	})

	cmp := CompareVersions(from, to)

	assert.Equal(t, "0.1", cmp.FromVersion)
	assert.Equal(t, "0.2", cmp.ToVersion)
	assert.Len(t, cmp.FieldsChanged, 1)

	diff := cmp.FieldsChanged[0]
	assert.Equal(t, "introduction_text", diff.FieldName)
	assert.Equal(t, []string{
		"  Первая строка",
		"- Вторая строка",
		"+ Измененная строка",
		"+ Третья строка",
	}, diff.DiffLines)
}

func TestCompareVersionsTableRows(t *testing.T) {
	from := versionFixture("0.1", map[string]interface{}{
		"risks_table": "Риск|Влияние\nСбой стенда|Высокое\nНет данных|Среднее",
	})
	to := versionFixture("0.2", map[string]interface{}{
		"risks_table": "Риск|Влияние\nСбой стенда|Критичное\nНовый риск|Низкое",
	})

	cmp := CompareVersions(from, to)

	assert.Empty(t, cmp.FieldsChanged)
	assert.Len(t, cmp.TablesChanged, 1)

	byKey := map[string]TableRowDiff{}
	for _, row := range cmp.TablesChanged[0].Rows {
		byKey[row.Key] = row
	}

	assert.Equal(t, "modified", byKey["Сбой стенда"].ChangeType)
	assert.Equal(t, []CellChange{{ColumnIndex: 1, OldValue: "Высокое", NewValue: "Критичное"}},
		byKey["Сбой стенда"].CellChanges)
	assert.Equal(t, "added", byKey["Новый риск"].ChangeType)
	assert.Equal(t, "removed", byKey["Нет данных"].ChangeType)
}

func TestCompareVersionsMetadataAndTags(t *testing.T) {
	from := versionFixture("0.1", map[string]interface{}{"tags": "нт, методика"})
	to := versionFixture("0.2", map[string]interface{}{"tags": "методика, нт, отчет"})
	to.Title = "МНТ Проект Бета"
	to.Author = "Петров"

	cmp := CompareVersions(from, to)

	assert.Equal(t, "МНТ Проект Альфа", cmp.MetadataChanged["title"].OldValue)
	assert.Equal(t, "МНТ Проект Бета", cmp.MetadataChanged["title"].NewValue)
	assert.Equal(t, "Петров", cmp.MetadataChanged["author"].NewValue)
	assert.NotContains(t, cmp.MetadataChanged, "project")

	// Tag comparison is order-insensitive.
	assert.Equal(t, "методика, нт", cmp.MetadataChanged["tags"].OldValue)
	assert.Equal(t, "методика, нт, отчет", cmp.MetadataChanged["tags"].NewValue)
}

func TestCompareVersionsNoChanges(t *testing.T) {
	from := versionFixture("0.1", map[string]interface{}{"introduction_text": "Текст"})
	to := versionFixture("0.1", map[string]interface{}{"introduction_text": "  Текст  "})

	cmp := CompareVersions(from, to)

	assert.Empty(t, cmp.FieldsChanged)
	assert.Empty(t, cmp.TablesChanged)
	assert.Empty(t, cmp.MetadataChanged)
	assert.Equal(t, "Изменений нет", cmp.Summary)
}

func TestCompareVersionsSkipsBookkeepingFields(t *testing.T) {
	from := versionFixture("0.1", map[string]interface{}{"change_description": "a"})
	to := versionFixture("0.2", map[string]interface{}{"change_description": "b"})

	cmp := CompareVersions(from, to)
	assert.Empty(t, cmp.FieldsChanged)
}
