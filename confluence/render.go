package confluence

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Storage-format rendering of a methodology document. The section layout,
// numbering and boilerplate sentences follow the methodology template, so
// the generated page reads like the hand-written original.

func escapeXML(text string) string {
	return html.EscapeString(text)
}

// renderText renders one paragraph per non-blank line.
func renderText(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			b.WriteString("<p>" + escapeXML(line) + "</p>")
		}
	}
	return b.String()
}

var (
	enumMarkerRe   = regexp.MustCompile(`^\d+[.)]\s*`)
	bulletMarkerRe = regexp.MustCompile(`^[-•–*]\s*`)
)

// renderList renders a <ul> or <ol>, stripping the markers the form keeps
// in the raw text.
func renderList(text string, ordered bool) string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if ordered {
			line = enumMarkerRe.ReplaceAllString(line, "")
		} else {
			line = bulletMarkerRe.ReplaceAllString(line, "")
		}
		items = append(items, "<li>"+escapeXML(line)+"</li>")
	}
	if len(items) == 0 {
		return ""
	}
	tag := "ul"
	if ordered {
		tag = "ol"
	}
	return "<" + tag + ">" + strings.Join(items, "") + "</" + tag + ">"
}

// renderTable renders |-delimited text as a table, first row as header.
// Text without a | separator falls back to paragraphs.
func renderTable(text string, tableNum int, caption string) (string, int) {
	lines := nonBlankLines(text)
	if len(lines) == 0 {
		return "", tableNum
	}
	if !strings.Contains(lines[0], "|") {
		return renderText(text), tableNum
	}

	var b strings.Builder
	if caption != "" {
		b.WriteString(fmt.Sprintf("<p><strong>Таблица %d - %s</strong></p>", tableNum, escapeXML(caption)))
	} else {
		b.WriteString(fmt.Sprintf("<p><strong>Таблица %d</strong></p>", tableNum))
	}
	b.WriteString("<table>")
	for i, line := range lines {
		cellTag := "td"
		if i == 0 {
			cellTag = "th"
		}
		b.WriteString("<tr>")
		for _, cell := range strings.Split(line, "|") {
			b.WriteString("<" + cellTag + ">" + escapeXML(strings.TrimSpace(cell)) + "</" + cellTag + ">")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</table>")
	return b.String(), tableNum + 1
}

func renderImage(filename string, figureNum int, caption string) (string, int) {
	var b strings.Builder
	if caption != "" {
		b.WriteString(fmt.Sprintf("<p><strong>Рисунок %d %s</strong></p>", figureNum, escapeXML(caption)))
	} else {
		b.WriteString(fmt.Sprintf("<p><strong>Рисунок %d</strong></p>", figureNum))
	}
	b.WriteString(`<p><ac:image><ri:attachment ri:filename="` + escapeXML(filename) + `"/></ac:image></p>`)
	return b.String(), figureNum + 1
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// tocEntry tracks a heading for the table of contents.
type tocEntry struct {
	name  string
	level int
}

func renderTOC(entries []tocEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<h1>Содержание</h1><table>")
	section, sub, subSub := 0, 0, 0
	for _, e := range entries {
		switch e.level {
		case 1:
			section++
			sub, subSub = 0, 0
			b.WriteString(fmt.Sprintf("<tr><td>%d</td><td>%s</td></tr>", section, escapeXML(e.name)))
		case 2:
			sub++
			subSub = 0
			b.WriteString(fmt.Sprintf("<tr><td>%d.%d</td><td>%s</td></tr>", section, sub, escapeXML(e.name)))
		case 3:
			subSub++
			b.WriteString(fmt.Sprintf("<tr><td>%d.%d.%d</td><td>%s</td></tr>", section, sub, subSub, escapeXML(e.name)))
		}
	}
	b.WriteString("</table>")
	return b.String()
}

// Render produces the full Confluence storage-format body for a document.
// Empty fields drop their section; numbering stays fixed so cross-document
// references hold.
func (c *client) Render(title string, fields map[string]string) string {
	return RenderStorage(title, fields)
}

// RenderStorage is the pure rendering function behind Publisher.Render.
func RenderStorage(title string, fields map[string]string) string {
	get := func(key string) string { return strings.TrimSpace(fields[key]) }
	has := func(keys ...string) bool {
		for _, k := range keys {
			if get(k) != "" {
				return true
			}
		}
		return false
	}

	var body strings.Builder
	var toc []tocEntry
	tableNum, figureNum := 1, 1

	addHeading := func(level int, number, name string) {
		toc = append(toc, tocEntry{name: name, level: level})
		body.WriteString(fmt.Sprintf("<h%d>%s %s</h%d>", level, number, escapeXML(name), level))
	}
	addTable := func(key, caption string) {
		rendered, next := renderTable(get(key), tableNum, caption)
		body.WriteString(rendered)
		tableNum = next
	}

	if v := get("history_changes_table"); v != "" {
		addHeading(1, "1", "История изменений")
		body.WriteString(fmt.Sprintf("<p>История изменений документа представлена в таблице Таблица %d.</p>", tableNum))
		addTable("history_changes_table", "История изменений документа")
	}

	if has("approval_list_table") {
		addHeading(1, "2", "Лист согласования")
		body.WriteString("<p>Заполняется согласующими лицами со стороны заказчика.</p>")
		addTable("approval_list_table", "Лист согласования")
	}

	if has("abbreviations_table", "terminology_table") {
		addHeading(1, "3", "Сокращения и терминология")
		if has("abbreviations_table") {
			addHeading(2, "3.1", "Сокращения")
			body.WriteString(fmt.Sprintf("<p>В таблице Таблица %d приводятся используемые в документе список сокращений и их расшифровка.</p>", tableNum))
			addTable("abbreviations_table", "Список сокращений и их расшифровка")
		}
		if has("terminology_table") {
			addHeading(2, "3.2", "Терминология")
			body.WriteString(fmt.Sprintf("<p>В таблице Таблица %d приводятся основные используемые в данном документе и в процессах нагрузочного тестирования термины.</p>", tableNum))
			addTable("terminology_table", "Основные используемые термины и их описание")
		}
	}

	if has("introduction_text") {
		addHeading(1, "4", "Введение")
		body.WriteString(renderText(get("introduction_text")))
	}

	if has("goals_business", "goals_technical", "tasks_nt") {
		addHeading(1, "5", "Цели и задачи НТ")
		if has("goals_business", "goals_technical") {
			addHeading(2, "5.1", "Цели НТ")
			body.WriteString("<p>Целями нагрузочного тестирования являются:</p>")
			if has("goals_business") {
				body.WriteString("<p><strong>Бизнес-цели:</strong></p>")
				body.WriteString(renderList(get("goals_business"), false))
			}
			if has("goals_technical") {
				body.WriteString("<p><strong>Технические цели:</strong></p>")
				body.WriteString(renderList(get("goals_technical"), false))
			}
		}
		if has("tasks_nt") {
			addHeading(2, "5.2", "Задачи НТ")
			body.WriteString("<p>Для достижения целей нагрузочного тестирования необходимо выполнить ряд задач:</p>")
			body.WriteString(renderList(get("tasks_nt"), true))
		}
	}

	if has("limitations_list", "risks_table") {
		addHeading(1, "6", "Ограничения и риски НТ")
		if has("limitations_list") {
			addHeading(2, "6.1", "Ограничения НТ")
			body.WriteString(renderList(get("limitations_list"), true))
		}
		if has("risks_table") {
			addHeading(2, "6.2", "Риски НТ")
			body.WriteString(fmt.Sprintf("<p>Риски при проведении НТ и их влияние на его результат описаны в таблице %d.</p>", tableNum))
			addTable("risks_table", "Риски НТ")
		}
	}

	if has("object_general", "performance_requirements", "component_architecture_text",
		"component_architecture_image", "information_architecture_image") {
		addHeading(1, "7", "Объект НТ")
		if has("object_general") {
			addHeading(2, "7.1", "Общие сведения")
			body.WriteString(renderText(get("object_general")))
		}
		if has("performance_requirements") {
			addHeading(2, "7.2", "Требования к производительности")
			body.WriteString("<p>Для тестируемой системы Заказчиком были выдвинуты следующие нефункциональные требования к производительности:</p>")
			body.WriteString(renderList(get("performance_requirements"), false))
		}
		if has("component_architecture_text", "component_architecture_image", "information_architecture_image") {
			addHeading(2, "7.3", "Архитектура системы")
			if has("component_architecture_text", "component_architecture_image") {
				addHeading(3, "7.3.1", "Компонентная архитектура")
				if has("component_architecture_text") {
					body.WriteString("<p>Компонентная архитектура состоит из следующих частей:</p>")
					body.WriteString(renderList(get("component_architecture_text"), false))
				}
				if img := get("component_architecture_image"); img != "" {
					rendered, next := renderImage(img, figureNum, "Компонентная архитектура")
					body.WriteString(rendered)
					figureNum = next
				}
			}
			if img := get("information_architecture_image"); img != "" {
				addHeading(3, "7.3.2", "Информационная архитектура")
				rendered, next := renderImage(img, figureNum, "Информационная архитектура")
				body.WriteString(rendered)
				figureNum = next
			}
		}
	}

	if has("test_stand_architecture_text", "stand_comparison_table") {
		addHeading(1, "8", "Тестовый и промышленный стенды")
		if has("test_stand_architecture_text") {
			addHeading(2, "8.1", "Архитектура тестового стенда")
			body.WriteString(renderText(get("test_stand_architecture_text")))
		}
		if has("stand_comparison_table") {
			addHeading(2, "8.2", "Сравнение конфигураций промышленной среды и тестового стенда")
			body.WriteString(fmt.Sprintf("<p>Сравнение продуктового и тестового стенда представлено см. Таблица %d.</p>", tableNum))
			addTable("stand_comparison_table", "Конфигурация серверов тестового (UAT) и продуктивного стендов. Сравнительная таблица")
		}
	}

	if has("planned_tests_table", "completion_conditions") {
		addHeading(1, "9", "Стратегия тестирования")
		if has("planned_tests_intro", "planned_tests_table") {
			addHeading(2, "9.1", "Описание планируемых тестов")
			if has("planned_tests_intro") {
				body.WriteString(renderText(get("planned_tests_intro")))
			}
			if has("planned_tests_table") {
				addTable("planned_tests_table", "Перечень типов тестов")
			}
		}
		if has("completion_conditions") {
			addHeading(2, "9.2", "Условия завершения НТ")
			body.WriteString("<p>Критериями успешного завершения нагрузочного тестирования являются:</p>")
			body.WriteString(renderList(get("completion_conditions"), false))
		}
	}

	if has("database_preparation_text", "database_preparation_table") {
		addHeading(1, "10", "Наполнение БД")
		if has("database_preparation_text") {
			body.WriteString(renderText(get("database_preparation_text")))
		}
		if has("database_preparation_table") {
			body.WriteString(fmt.Sprintf("<p>Требования к объемам данных представлены в Таблица %d.</p>", tableNum))
			addTable("database_preparation_table", "Требования к объемам данных")
		}
	}

	if has("load_modeling_principles", "load_profiles_table", "use_scenarios_table", "emulators_description") {
		addHeading(1, "11", "Моделирование нагрузки")
		if has("load_modeling_principles") {
			addHeading(2, "11.1", "Общие принципы моделирования нагрузки")
			body.WriteString(renderText(get("load_modeling_principles")))
		}
		if has("load_profiles_intro", "load_profiles_table") {
			addHeading(2, "11.2", "Профили нагрузки")
			if has("load_profiles_intro") {
				body.WriteString(renderText(get("load_profiles_intro")))
			}
			if has("load_profiles_table") {
				addTable("load_profiles_table", "Профиль Р1")
			}
		}
		if has("use_scenarios_intro", "use_scenarios_table") {
			addHeading(2, "11.3", "Сценарии использования")
			if has("use_scenarios_intro") {
				body.WriteString(renderText(get("use_scenarios_intro")))
			}
			if has("use_scenarios_table") {
				addTable("use_scenarios_table", "Описание операции")
			}
		}
		if has("emulators_description") {
			addHeading(2, "11.4", "Описание работы эмуляторов")
			body.WriteString(renderText(get("emulators_description")))
		}
	}

	if has("monitoring_intro", "monitoring_tools_table", "system_resources_table", "business_metrics_table") {
		addHeading(1, "12", "Мониторинг")
		if has("monitoring_intro") {
			body.WriteString(renderText(get("monitoring_intro")))
		}
		if has("monitoring_tools_intro", "monitoring_tools_table", "monitoring_tools_note") {
			addHeading(2, "12.1", "Описание средств мониторинга")
			if has("monitoring_tools_intro") {
				body.WriteString(renderText(get("monitoring_tools_intro")))
			}
			if has("monitoring_tools_table") {
				addTable("monitoring_tools_table", "Средства мониторинга")
			}
			if has("monitoring_tools_note") {
				body.WriteString(renderText(get("monitoring_tools_note")))
			}
		}
		if has("system_resources_table", "business_metrics_table") {
			addHeading(2, "12.2", "Описание метрик мониторинга")
			if has("system_resources_intro", "system_resources_table") {
				addHeading(3, "12.2.1", "Мониторинг системных ресурсов")
				if has("system_resources_intro") {
					body.WriteString(renderText(get("system_resources_intro")))
				}
				if has("system_resources_table") {
					addTable("system_resources_table", "Метрики утилизации аппаратных ресурсов и системные метрики")
				}
			}
			if has("business_metrics_intro", "business_metrics_table") {
				addHeading(3, "12.2.2", "Мониторинг бизнес-метрик")
				if has("business_metrics_intro") {
					body.WriteString(renderText(get("business_metrics_intro")))
				}
				if has("business_metrics_table") {
					addTable("business_metrics_table", "Бизнес-метрики производительности")
				}
			}
		}
	}

	if has("customer_requirements_list") {
		addHeading(1, "13", "Требования к Заказчику")
		if has("customer_requirements_intro") {
			body.WriteString(renderText(get("customer_requirements_intro")))
		}
		body.WriteString(renderList(get("customer_requirements_list"), true))
	}

	if has("deliverables_intro", "deliverables_table", "deliverables_working_docs_table") {
		addHeading(1, "14", "Материалы, подлежащие сдаче")
		if has("deliverables_intro") {
			body.WriteString(renderText(get("deliverables_intro")))
		}
		if has("deliverables_table") {
			addTable("deliverables_table", "Материалы, подлежащие сдаче")
		}
		if v := get("deliverables_working_docs_table"); v != "" {
			lines := nonBlankLines(v)
			body.WriteString("<p><strong>" + escapeXML(lines[0]) + "</strong></p>")
			if len(lines) > 1 {
				rows := "Документ|Подготавливается в результате деятельности\n" + strings.Join(lines[1:], "\n")
				rendered, next := renderTable(rows, tableNum, "")
				body.WriteString(rendered)
				tableNum = next
			}
		}
	}

	if has("contacts_table") {
		addHeading(1, "15", "Контакты")
		addTable("contacts_table", "Контакты ответственных лиц")
	}

	var page strings.Builder
	page.WriteString("<h1>Методика нагрузочного тестирования</h1>")
	if v := get("project_name"); v != "" {
		page.WriteString("<p><strong>" + escapeXML(v) + "</strong></p>")
	} else if title != "" {
		page.WriteString("<p><strong>" + escapeXML(title) + "</strong></p>")
	}
	if v := get("organization_name"); v != "" {
		page.WriteString("<p>" + escapeXML(v) + "</p>")
	}
	if v := get("system_version"); v != "" {
		page.WriteString("<p>Версия системы " + escapeXML(v) + "</p>")
	}
	page.WriteString(renderTOC(toc))
	page.WriteString(body.String())
	return page.String()
}
