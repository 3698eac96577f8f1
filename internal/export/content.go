package export

import (
	"fmt"
	"html"
	"strings"
)

// ContentToHTML converts the editor's JSON content tree to HTML. The tree
// follows the ProseMirror shape the editor saves: nested nodes with a type,
// optional attrs, child content, and marks on text leaves.
func ContentToHTML(doc any) string {
	root, ok := doc.(map[string]any)
	if !ok {
		return ""
	}
	return renderNode(root)
}

func renderNode(node map[string]any) string {
	nodeType, _ := node["type"].(string)
	if nodeType == "" {
		return ""
	}

	switch nodeType {
	case "doc":
		return renderContent(node["content"])
	case "paragraph":
		return fmt.Sprintf("<p>%s</p>\n", renderContent(node["content"]))
	case "heading":
		level := 1
		if attrs, ok := node["attrs"].(map[string]any); ok {
			if lvl, ok := attrs["level"].(float64); ok {
				level = int(lvl)
			}
		}
		return fmt.Sprintf("<h%d>%s</h%d>\n", level, renderContent(node["content"]), level)
	case "bulletList":
		return fmt.Sprintf("<ul>\n%s</ul>\n", renderContent(node["content"]))
	case "orderedList":
		return fmt.Sprintf("<ol>\n%s</ol>\n", renderContent(node["content"]))
	case "listItem":
		return fmt.Sprintf("<li>%s</li>\n", renderContent(node["content"]))
	case "taskList":
		return fmt.Sprintf("<ul class=\"task-list\">\n%s</ul>\n", renderContent(node["content"]))
	case "taskItem":
		checked := ""
		if attrs, ok := node["attrs"].(map[string]any); ok {
			if done, ok := attrs["checked"].(bool); ok && done {
				checked = " checked"
			}
		}
		return fmt.Sprintf("<li><input type=\"checkbox\" disabled%s> %s</li>\n", checked, renderContent(node["content"]))
	case "blockquote":
		return fmt.Sprintf("<blockquote>\n%s</blockquote>\n", renderContent(node["content"]))
	case "codeBlock":
		return fmt.Sprintf("<pre><code>%s</code></pre>\n", html.EscapeString(plainContent(node["content"])))
	case "image":
		src, alt := "", ""
		if attrs, ok := node["attrs"].(map[string]any); ok {
			src, _ = attrs["src"].(string)
			alt, _ = attrs["alt"].(string)
		}
		if src == "" {
			return ""
		}
		return fmt.Sprintf("<img src=%q alt=%q>\n", src, alt)
	case "text":
		text, _ := node["text"].(string)
		marks, _ := node["marks"].([]any)
		return renderTextWithMarks(text, marks)
	case "hardBreak":
		return "<br>"
	case "table":
		return fmt.Sprintf("<table>\n%s</table>\n", renderContent(node["content"]))
	case "tableRow":
		return fmt.Sprintf("<tr>\n%s</tr>\n", renderContent(node["content"]))
	case "tableCell":
		return fmt.Sprintf("<td>%s</td>\n", renderContent(node["content"]))
	case "tableHeader":
		return fmt.Sprintf("<th>%s</th>\n", renderContent(node["content"]))
	case "horizontalRule":
		return "<hr>\n"
	default:
		// Unknown node type - render content if any
		return renderContent(node["content"])
	}
}

func renderContent(content any) string {
	items, ok := content.([]any)
	if !ok {
		return ""
	}

	var result strings.Builder
	for _, item := range items {
		if node, ok := item.(map[string]any); ok {
			result.WriteString(renderNode(node))
		}
	}
	return result.String()
}

// plainContent extracts raw text, for code blocks where marks are ignored.
func plainContent(content any) string {
	items, ok := content.([]any)
	if !ok {
		return ""
	}
	var result strings.Builder
	for _, item := range items {
		if node, ok := item.(map[string]any); ok {
			if text, ok := node["text"].(string); ok {
				result.WriteString(text)
			}
		}
	}
	return result.String()
}

func renderTextWithMarks(text string, marks []any) string {
	if text == "" {
		return ""
	}

	htmlText := html.EscapeString(text)

	// Apply marks from outside in
	for i := len(marks) - 1; i >= 0; i-- {
		mark, ok := marks[i].(map[string]any)
		if !ok {
			continue
		}
		markType, _ := mark["type"].(string)

		switch markType {
		case "bold":
			htmlText = fmt.Sprintf("<strong>%s</strong>", htmlText)
		case "italic":
			htmlText = fmt.Sprintf("<em>%s</em>", htmlText)
		case "code":
			htmlText = fmt.Sprintf("<code>%s</code>", htmlText)
		case "strike":
			htmlText = fmt.Sprintf("<s>%s</s>", htmlText)
		case "underline":
			htmlText = fmt.Sprintf("<u>%s</u>", htmlText)
		case "highlight":
			htmlText = fmt.Sprintf("<mark>%s</mark>", htmlText)
		case "link":
			href := ""
			if attrs, ok := mark["attrs"].(map[string]any); ok {
				href, _ = attrs["href"].(string)
			}
			htmlText = fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(href), htmlText)
		}
	}

	return htmlText
}
