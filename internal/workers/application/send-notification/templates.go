// internal/workers/application/send-notification/templates.go
package sendnotification

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Template is one bilingual acknowledgement. Placeholders are written {{key}}.
type Template struct {
	Subject string
	Body    string
	SMS     string
}

var defaultTemplates = map[string]Template{
	TypeApplicationSubmitted: {
		Subject: "अर्ज प्राप्त / Application received: {{trackingCode}}",
		Body: "प्रिय {{applicantName}},\n" +
			"आपला {{formName}} अर्ज यशस्वीरित्या सादर झाला आहे. ट्रॅकिंग कोड: {{trackingCode}}\n\n" +
			"Dear {{applicantName}},\n" +
			"Your {{formName}} application has been submitted successfully.\n" +
			"Tracking code: {{trackingCode}}\n" +
			"Submitted at: {{submittedAt}}\n" +
			"Use the tracking code and your mobile number to check the status.",
		SMS: "RTS: {{formName}} अर्ज सादर. Tracking code {{trackingCode}}",
	},
	TypeApplicationUpdated: {
		Subject: "अर्ज अद्यतनित / Application updated: {{trackingCode}}",
		Body: "प्रिय {{applicantName}},\n" +
			"आपला अर्ज {{trackingCode}} अद्यतनित करण्यात आला आहे.\n\n" +
			"Dear {{applicantName}},\n" +
			"Your application {{trackingCode}} has been updated. Current status: {{status}}",
		SMS: "RTS: application {{trackingCode}} updated",
	},
}

var placeholderPattern = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// renderTemplate substitutes {{key}} placeholders and drops any left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		if v == nil {
			continue
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", fmt.Sprintf("%v", v))
	}
	return placeholderPattern.ReplaceAllString(result, "")
}

func textToHTML(text string) string {
	return "<p>" + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + "</p>"
}
