package models

type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldTable
)

// FieldSpec describes one known key of the MNT field set. The registry is
// the typed contract the diff engine and completeness checker work against:
// scalar fields compare as trimmed text, table fields as newline-separated
// rows of |-delimited cells. Bookkeeping fields never count as content
// changes (the history table records changes, it is not itself one).
type FieldSpec struct {
	Key         string
	Label       string
	Kind        FieldKind
	Bookkeeping bool
}

var Fields = []FieldSpec{
	{Key: "project_name", Label: "Название проекта", Kind: FieldScalar},
	{Key: "organization_name", Label: "Название организации", Kind: FieldScalar},
	{Key: "system_version", Label: "Версия системы", Kind: FieldScalar},
	{Key: "author", Label: "Автор", Kind: FieldScalar, Bookkeeping: true},
	{Key: "change_description", Label: "Описание изменений", Kind: FieldScalar, Bookkeeping: true},
	{Key: "history_changes_table", Label: "1. История изменений", Kind: FieldTable, Bookkeeping: true},
	{Key: "approval_list_table", Label: "2. Лист согласования", Kind: FieldTable},
	{Key: "abbreviations_table", Label: "3.1 Сокращения", Kind: FieldTable},
	{Key: "terminology_table", Label: "3.2 Терминология", Kind: FieldTable},
	{Key: "introduction_text", Label: "4. Введение", Kind: FieldScalar},
	{Key: "goals_business", Label: "5.1 Бизнес-цели", Kind: FieldScalar},
	{Key: "goals_technical", Label: "5.1 Технические цели", Kind: FieldScalar},
	{Key: "tasks_nt", Label: "5.2 Задачи НТ", Kind: FieldScalar},
	{Key: "limitations_list", Label: "6.1 Ограничения НТ", Kind: FieldScalar},
	{Key: "risks_table", Label: "6.2 Риски НТ", Kind: FieldTable},
	{Key: "object_general", Label: "7.1 Общие сведения", Kind: FieldScalar},
	{Key: "performance_requirements", Label: "7.2 Требования к производительности", Kind: FieldScalar},
	{Key: "component_architecture_text", Label: "7.3.1 Компонентная архитектура", Kind: FieldScalar},
	{Key: "component_architecture_image", Label: "Изображение компонентной архитектуры", Kind: FieldScalar, Bookkeeping: true},
	{Key: "information_architecture_image", Label: "Изображение информационной архитектуры", Kind: FieldScalar, Bookkeeping: true},
	{Key: "test_stand_architecture_text", Label: "8.1 Архитектура тестового стенда", Kind: FieldScalar},
	{Key: "stand_comparison_table", Label: "8.2 Сравнение конфигураций", Kind: FieldTable},
	{Key: "planned_tests_intro", Label: "9.1 Описание планируемых тестов (введение)", Kind: FieldScalar},
	{Key: "planned_tests_table", Label: "9.1 Описание планируемых тестов (таблица)", Kind: FieldTable},
	{Key: "planned_tests_note", Label: "9.1 Примечание о масштабируемости", Kind: FieldScalar},
	{Key: "completion_conditions", Label: "9.2 Условия завершения НТ", Kind: FieldScalar},
	{Key: "database_preparation_text", Label: "10. Наполнение БД (текст)", Kind: FieldScalar},
	{Key: "database_preparation_table", Label: "10. Наполнение БД (таблица)", Kind: FieldTable},
	{Key: "load_modeling_principles", Label: "11.1 Общие принципы моделирования нагрузки", Kind: FieldScalar},
	{Key: "load_profiles_intro", Label: "11.2 Профили нагрузки (введение)", Kind: FieldScalar},
	{Key: "load_profiles_table", Label: "11.2 Профили нагрузки (таблица)", Kind: FieldTable},
	{Key: "use_scenarios_intro", Label: "11.3 Сценарии использования (введение)", Kind: FieldScalar},
	{Key: "use_scenarios_table", Label: "11.3 Сценарии использования (таблица)", Kind: FieldTable},
	{Key: "emulators_description", Label: "11.4 Описание работы эмуляторов", Kind: FieldScalar},
	{Key: "monitoring_intro", Label: "12. Мониторинг (введение)", Kind: FieldScalar},
	{Key: "monitoring_tools_intro", Label: "12.1 Описание средств мониторинга (введение)", Kind: FieldScalar},
	{Key: "monitoring_tools_table", Label: "12.1 Описание средств мониторинга (таблица)", Kind: FieldTable},
	{Key: "monitoring_tools_note", Label: "12.1 Примечания о мониторинге", Kind: FieldScalar},
	{Key: "system_resources_intro", Label: "12.2.1 Мониторинг системных ресурсов (введение)", Kind: FieldScalar},
	{Key: "system_resources_table", Label: "12.2.1 Мониторинг системных ресурсов (таблица)", Kind: FieldTable},
	{Key: "business_metrics_intro", Label: "12.2.2 Мониторинг бизнес-метрик (введение)", Kind: FieldScalar},
	{Key: "business_metrics_table", Label: "12.2.2 Мониторинг бизнес-метрик (таблица)", Kind: FieldTable},
	{Key: "customer_requirements_intro", Label: "13. Требования к Заказчику (введение)", Kind: FieldScalar},
	{Key: "customer_requirements_list", Label: "13. Требования к Заказчику", Kind: FieldScalar},
	{Key: "deliverables_intro", Label: "14. Материалы, подлежащие сдаче (введение)", Kind: FieldScalar},
	{Key: "deliverables_table", Label: "14. Материалы, подлежащие сдаче (таблица 1)", Kind: FieldTable},
	{Key: "deliverables_working_docs_table", Label: "14. Материалы, подлежащие сдаче (таблица 2)", Kind: FieldTable},
	{Key: "contacts_table", Label: "15. Контакты", Kind: FieldTable},
	{Key: "tags", Label: "Теги", Kind: FieldScalar},
	{Key: "confluence_space", Label: "Space в Confluence", Kind: FieldScalar},
	{Key: "confluence_parent_id", Label: "Родительская страница в Confluence", Kind: FieldScalar},
}

var fieldIndex = func() map[string]FieldSpec {
	index := make(map[string]FieldSpec, len(Fields))
	for _, f := range Fields {
		index[f.Key] = f
	}
	return index
}()

func FieldByKey(key string) (FieldSpec, bool) {
	f, ok := fieldIndex[key]
	return f, ok
}

// FieldLabel returns the display label for a key, falling back to the key
// itself for values outside the registry.
func FieldLabel(key string) string {
	if f, ok := fieldIndex[key]; ok {
		return f.Label
	}
	return key
}

// ContentFields returns the registry entries eligible for change detection.
func ContentFields() []FieldSpec {
	content := make([]FieldSpec, 0, len(Fields))
	for _, f := range Fields {
		if !f.Bookkeeping {
			content = append(content, f)
		}
	}
	return content
}
