package services

import (
	"math"
	"strings"
	"unicode"

	"mnt-generator/models"
)

// SectionStatus is one entry of the completeness report.
type SectionStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Filled bool   `json:"filled"`
	Issue  string `json:"issue,omitempty"`
}

// CompletenessReport is the publish-gate result: per-section status plus
// the aggregate percentage.
type CompletenessReport struct {
	TotalSections        int             `json:"total_sections"`
	FilledSections       int             `json:"filled_sections"`
	CompletionPercentage int             `json:"completion_percentage"`
	Sections             []SectionStatus `json:"sections"`
}

type requirement struct {
	field string
	issue string
}

type sectionSpec struct {
	id           string
	name         string
	requirements []requirement
}

// The fixed checklist. A section is filled when every requirement passes;
// the kind of each field (scalar or table) comes from the registry.
var completenessSections = []sectionSpec{
	{"section-header", "Заголовок документа", []requirement{
		{"project_name", "Название проекта не заполнено"},
		{"organization_name", "Название компании не заполнено"},
		{"system_version", "Версия системы не заполнена"},
		{"author", "Автор не указан"},
	}},
	{"section-1", "1. История изменений", []requirement{
		{"history_changes_table", "Таблица истории изменений пуста"},
	}},
	{"section-2", "2. Лист согласования", []requirement{
		{"approval_list_table", "Таблица листа согласования пуста"},
	}},
	{"section-3", "3. Сокращения и терминология", []requirement{
		{"abbreviations_table", "Таблица сокращений не заполнена"},
		{"terminology_table", "Таблица терминологии не заполнена"},
	}},
	{"section-4", "4. Введение", []requirement{
		{"introduction_text", "Текст введения отсутствует"},
	}},
	{"section-5", "5. Цели и задачи НТ", []requirement{
		{"goals_business", "Бизнес-цели не заполнены"},
		{"goals_technical", "Технические цели не заполнены"},
		{"tasks_nt", "Задачи НТ не заполнены"},
	}},
	{"section-6", "6. Ограничения и риски НТ", []requirement{
		{"limitations_list", "Список ограничений не заполнен"},
		{"risks_table", "Таблица рисков не заполнена"},
	}},
	{"section-7", "7. Объект НТ", []requirement{
		{"object_general", "Общие сведения об объекте не заполнены"},
		{"performance_requirements", "Требования к производительности не заполнены"},
		{"component_architecture_text", "Компонентная архитектура не заполнена"},
	}},
	{"section-8", "8. Тестовый и промышленный стенды", []requirement{
		{"test_stand_architecture_text", "Архитектура тестового стенда не заполнена"},
	}},
	{"section-9", "9. Стратегия тестирования", []requirement{
		{"planned_tests_intro", "Введение к планируемым тестам не заполнено"},
		{"planned_tests_table", "Таблица планируемых тестов не заполнена"},
		{"completion_conditions", "Условия завершения НТ не заполнены"},
	}},
	{"section-10", "10. Наполнение БД", []requirement{
		{"database_preparation_text", "Текст о наполнении БД не заполнен"},
		{"database_preparation_table", "Таблица наполнения БД не заполнена"},
	}},
	{"section-11", "11. Моделирование нагрузки", []requirement{
		{"load_modeling_principles", "Принципы моделирования нагрузки не заполнены"},
		{"load_profiles_intro", "Введение к профилям нагрузки не заполнено"},
		{"load_profiles_table", "Таблица профилей нагрузки не заполнена"},
		{"use_scenarios_intro", "Введение к сценариям использования не заполнено"},
		{"use_scenarios_table", "Таблица сценариев использования не заполнена"},
		{"emulators_description", "Описание работы эмуляторов не заполнено"},
	}},
	{"section-12", "12. Мониторинг", []requirement{
		{"monitoring_intro", "Введение к мониторингу не заполнено"},
		{"monitoring_tools_intro", "Введение к средствам мониторинга не заполнено"},
		{"monitoring_tools_table", "Таблица средств мониторинга не заполнена"},
		{"system_resources_intro", "Введение к мониторингу системных ресурсов не заполнено"},
		{"system_resources_table", "Таблица мониторинга системных ресурсов не заполнена"},
		{"business_metrics_intro", "Введение к мониторингу бизнес-метрик не заполнено"},
		{"business_metrics_table", "Таблица мониторинга бизнес-метрик не заполнена"},
	}},
	{"section-13", "13. Требования к Заказчику", []requirement{
		{"customer_requirements_list", "Требования к Заказчику не заполнены"},
	}},
	{"section-14", "14. Материалы, подлежащие сдаче", []requirement{
		{"deliverables_intro", "Введение к материалам не заполнено"},
		{"deliverables_table", "Таблица материалов не заполнена"},
		{"deliverables_working_docs_table", "Таблица рабочих документов не заполнена"},
	}},
	{"section-15", "15. Контакты", []requirement{
		{"contacts_table", "Таблица контактов не заполнена"},
	}},
	{"section-tags", "Теги", []requirement{
		{"tags", "Теги не заполнены"},
	}},
	{"section-confluence", "Публикация в Confluence", []requirement{
		{"confluence_space", "Space Key не указан"},
	}},
}

// CheckCompleteness evaluates the checklist against a field set. Pure
// function of its input; safe to run on every keystroke of the form.
func CheckCompleteness(data map[string]string) CompletenessReport {
	report := CompletenessReport{
		TotalSections: len(completenessSections),
		Sections:      make([]SectionStatus, 0, len(completenessSections)),
	}

	for _, section := range completenessSections {
		status := SectionStatus{ID: section.id, Name: section.name, Filled: true}
		for _, req := range section.requirements {
			if requirementFilled(req.field, data[req.field]) {
				continue
			}
			status.Filled = false
			status.Issue = req.issue
			break
		}
		if status.Filled {
			report.FilledSections++
		}
		report.Sections = append(report.Sections, status)
	}

	report.CompletionPercentage = int(math.Round(
		float64(report.FilledSections) * 100 / float64(report.TotalSections)))
	return report
}

func requirementFilled(field, value string) bool {
	if spec, ok := models.FieldByKey(field); ok && spec.Kind == models.FieldTable {
		return tableFilled(value)
	}
	return scalarFilled(value)
}

// scalarFilled: non-empty after stripping list markers and placeholder-only
// lines. A field of nothing but bullets and dashes counts as unfilled.
func scalarFilled(value string) bool {
	for _, line := range strings.Split(value, "\n") {
		if stripListMarkers(line) != "" {
			return true
		}
	}
	return false
}

// tableFilled: at least one data row with at least one cell that is neither
// empty nor the "-" placeholder.
func tableFilled(value string) bool {
	for _, row := range DataRows(ParseTable(value)) {
		for _, cell := range row {
			if cell != "" && cell != "-" {
				return true
			}
		}
	}
	return false
}

// stripListMarkers removes the leading bullet/dash/enumeration decorations
// the form inserts for list-shaped text fields.
func stripListMarkers(line string) string {
	s := strings.TrimSpace(line)
	for {
		switch {
		case strings.HasPrefix(s, "•"), strings.HasPrefix(s, "-"),
			strings.HasPrefix(s, "–"), strings.HasPrefix(s, "*"):
			s = strings.TrimSpace(strings.TrimLeft(s, "•-–*"))
		case startsWithEnumeration(s):
			s = strings.TrimSpace(trimEnumeration(s))
		default:
			return s
		}
	}
}

func startsWithEnumeration(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')')
}

func trimEnumeration(s string) string {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	// skip the '.' or ')'
	return s[i+1:]
}
