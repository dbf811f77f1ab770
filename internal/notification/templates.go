package notification

import (
	"fmt"
	"strings"

	"jobmatch-workers/internal/models"
)

// Template holds the title and message patterns of one notification type.
// Placeholders are written as {{name}}.
type Template struct {
	Title   string
	Message string
}

var templates = map[string]Template{
	models.NotificationTypeJobAlert: {
		Title:   "{{count}} new jobs for \"{{alertName}}\"",
		Message: "We found {{count}} new job postings matching your alert \"{{alertName}}\".",
	},
}

// RenderTemplate fills the template for notificationType with data. Unknown
// types return ok=false.
func RenderTemplate(notificationType string, data map[string]interface{}) (title, message string, ok bool) {
	tmpl, ok := templates[notificationType]
	if !ok {
		return "", "", false
	}
	return render(tmpl.Title, data), render(tmpl.Message, data), true
}

// render replaces known placeholders and drops any left unresolved.
func render(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		switch t := v.(type) {
		case string:
			value = t
		case nil:
		default:
			value = fmt.Sprintf("%v", t)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
