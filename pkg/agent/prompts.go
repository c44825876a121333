package agent

import "github.com/avbelov/webpilot/pkg/llm"

// systemPrompt instructs the model how to drive the browser. The agent works
// Russian-language tasks; the prompt keeps the model in that register.
const systemPrompt = `Ты — агент, управляющий веб-браузером для выполнения задачи пользователя.

Работай итеративно: на каждом шаге выбирай ОДНО следующее действие из доступных инструментов, смотри на результат и планируй дальше.

Правила:
1. Начинай с analyze_page(), чтобы увидеть интерактивные элементы страницы. ID элементов действительны только до следующего анализа.
2. Если нужного элемента не видно, используй search_elements(), scroll_page() или query_dom() прежде чем кликать вслепую.
3. Если страница перекрыта модальным окном или баннером cookies, закрой его через close_modal().
4. Строго соблюдай все ограничения пользователя (например "оплату не производи", "ничего не удаляй"). Никогда не нарушай их, даже если это мешает выполнить задачу.
5. Перед завершением проверь результат через validate_task_complete().
6. Когда задача выполнена, вызови finish_task(summary=...) с кратким итогом на русском языке. Если задачу выполнить невозможно, тоже вызови finish_task и объясни почему.
7. Не придумывай элементы и состояния страницы, которых не видел в результатах инструментов.

Отвечай кратко. Длинные рассуждения не нужны — одно-два предложения о плане и вызов инструмента.`

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// toolDefinitions is the full tool schema advertised to the model. The set
// mirrors the ActionName constants one-to-one.
func toolDefinitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        string(ActionAnalyzePage),
			Description: "Scan the current page and return numbered interactive elements (buttons, inputs, links). IDs are only valid until the next analyze_page call.",
			InputSchema: schema(map[string]any{
				"detailed": prop("boolean", "Return every element with all attributes instead of a concise top-20 view"),
			}),
		},
		{
			Name:        string(ActionClickElement),
			Description: "Click an element by its ID from the latest analyze_page result.",
			InputSchema: schema(map[string]any{
				"element_id": prop("integer", "Element ID from analyze_page"),
			}, "element_id"),
		},
		{
			Name:        string(ActionTypeText),
			Description: "Type text into an input element by its ID.",
			InputSchema: schema(map[string]any{
				"element_id":  prop("integer", "Element ID from analyze_page"),
				"text":        prop("string", "Text to type"),
				"press_enter": prop("boolean", "Press Enter after typing"),
			}, "element_id", "text"),
		},
		{
			Name:        string(ActionClickAndType),
			Description: "Click an element to focus it, then type text into it. Use for inputs that need a click before accepting text.",
			InputSchema: schema(map[string]any{
				"element_id": prop("integer", "Element ID from analyze_page"),
				"text":       prop("string", "Text to type"),
			}, "element_id", "text"),
		},
		{
			Name:        string(ActionClickText),
			Description: "Click the first visible element containing the given text, without needing an element ID.",
			InputSchema: schema(map[string]any{
				"text":  prop("string", "Visible text of the element to click"),
				"exact": prop("boolean", "Require an exact text match"),
			}, "text"),
		},
		{
			Name:        string(ActionNavigateURL),
			Description: "Open a URL in the active page.",
			InputSchema: schema(map[string]any{
				"url": prop("string", "Absolute URL; https:// is assumed if the scheme is missing"),
			}, "url"),
		},
		{
			Name:        string(ActionTakeScreenshot),
			Description: "Capture a screenshot of the current page to a file.",
			InputSchema: schema(map[string]any{
				"full_page": prop("boolean", "Capture the full scrollable page instead of the viewport"),
			}),
		},
		{
			Name:        string(ActionWaitForElement),
			Description: "Wait until an element with the given visible text appears on the page.",
			InputSchema: schema(map[string]any{
				"query":   prop("string", "Visible text to wait for"),
				"timeout": prop("number", "Timeout in seconds (default 5)"),
			}, "query"),
		},
		{
			Name:        string(ActionSearchElements),
			Description: "Search the latest analyzed elements by a text fragment (matches text, aria-label, placeholder, href).",
			InputSchema: schema(map[string]any{
				"query": prop("string", "Text fragment to search for"),
			}, "query"),
		},
		{
			Name:        string(ActionValidateTaskComplete),
			Description: "Capture the current URL, title and a text sample of the page so you can judge whether the task goal is reflected in the page state.",
			InputSchema: schema(map[string]any{
				"hint": prop("string", "What you expect to see if the task is complete"),
			}),
		},
		{
			Name:        string(ActionQueryDOM),
			Description: "Ask the DOM sub-agent a free-form question about the current page contents.",
			InputSchema: schema(map[string]any{
				"query": prop("string", "Natural-language question about the page"),
			}, "query"),
		},
		{
			Name:        string(ActionFinishTask),
			Description: "Finish the task and stop the agent. Call this exactly once, when the task is done or proven impossible.",
			InputSchema: schema(map[string]any{
				"summary": prop("string", "Short summary of what was accomplished"),
			}),
		},
		{
			Name:        string(ActionScrollPage),
			Description: "Scroll the page viewport up or down.",
			InputSchema: schema(map[string]any{
				"direction": prop("string", `"up" or "down" (default "down")`),
				"amount":    prop("number", "Scroll distance in pixels (default 600)"),
			}),
		},
		{
			Name:        string(ActionSwitchToPage),
			Description: "Switch focus to another open browser tab by index. -1 is the newest tab.",
			InputSchema: schema(map[string]any{
				"index": prop("integer", "0-based tab index; negative counts from the end"),
			}),
		},
		{
			Name:        string(ActionGoBack),
			Description: "Go back one page in the browser history.",
			InputSchema: schema(map[string]any{}),
		},
		{
			Name:        string(ActionExtractText),
			Description: "Extract the text content of the first element matching a CSS selector.",
			InputSchema: schema(map[string]any{
				"selector": prop("string", "CSS selector, e.g. h1 or .price"),
			}, "selector"),
		},
		{
			Name:        string(ActionCollectElements),
			Description: "Collect the text of all elements matching a CSS selector, e.g. every search-result title.",
			InputSchema: schema(map[string]any{
				"selector": prop("string", "CSS selector"),
				"limit":    prop("integer", "Maximum number of items to return (default 20)"),
			}, "selector"),
		},
		{
			Name:        string(ActionSwitchFrame),
			Description: "Focus an iframe for subsequent actions, or return to the main page with reset=true.",
			InputSchema: schema(map[string]any{
				"selector": prop("string", "CSS selector of the iframe element"),
				"index":    prop("integer", "Frame index when no selector is given"),
				"reset":    prop("boolean", "Return focus to the main page"),
			}),
		},
		{
			Name:        string(ActionCloseModal),
			Description: "Close a modal dialog, popup or cookie banner covering the page.",
			InputSchema: schema(map[string]any{}),
		},
	}
}
