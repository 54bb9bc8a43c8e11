package notification

import "strings"

// Message templates keyed by event. Placeholders use {{key}} and are
// substituted from the data map; unknown placeholders are left as-is so a
// bad template is visible in the delivered text instead of silently empty.
const (
	TemplateScheduled = "appointment-scheduled"
	TemplateReminder  = "appointment-reminder"
	TemplateCancelled = "appointment-cancelled"
)

type template struct {
	Subject string
	Body    string
}

var templates = map[string]template{
	TemplateScheduled: {
		Subject: "Appointment scheduled",
		Body: "Hello {{patient}}, your appointment with {{professional}} is scheduled for {{date}} at {{time}}. " +
			"If you need to reschedule, please contact the clinic.",
	},
	TemplateReminder: {
		Subject: "Appointment reminder",
		Body:    "Hello {{patient}}, this is a reminder of your appointment with {{professional}} tomorrow at {{time}}.",
	},
	TemplateCancelled: {
		Subject: "Appointment cancelled",
		Body:    "Hello {{patient}}, your appointment with {{professional}} on {{date}} at {{time}} has been cancelled.",
	},
}

// Render fills a named template with the given data. The second return is
// false when the template does not exist.
func Render(name string, data map[string]string) (subject, body string, ok bool) {
	t, ok := templates[name]
	if !ok {
		return "", "", false
	}
	return t.Subject, renderText(t.Body, data), true
}

func renderText(text string, data map[string]string) string {
	for key, value := range data {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
