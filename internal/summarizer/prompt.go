package summarizer

import (
	"fmt"
	"strings"
)

const (
	descriptionPlaceholder = "{description}"
	urlPlaceholder         = "{url}"
)

const defaultPromptText = `Shorten and summarize the following news article into a single line in exactly this format:

[Article Title](URL) — The **Organization** did **something important** that has **significant impact**.

Rules:
- Put a short article title in the brackets, based on the description.
- Put this exact URL in the parentheses, character for character, without changing it: {url}
- Keep the literal words "The", "did" and "that has" and the three bold spans in that order.
- The first bold span names who acted, the second what they did, the third the impact.
- Output exactly one line and nothing else: no quotes, no code fences, no commentary.
- Use only facts stated in the description. Do not invent names, numbers or outcomes.

Example:
[If It Looks Like a Bank…](https://techcrunch.com/2024/11/21/apple-pay-paypal-cash-app-will-be-treated-more-like-banks/) — The **CFPB** did **rule that large digital payment apps must face bank-like oversight** that has **significant impact on Apple Pay, PayPal and Cash App users**.

Description: {description}
URL: {url}`

// Template is a prompt plus the output check that goes with it. Strict
// templates require the exact "The ** did ** that has **." sentence.
type Template struct {
	Name   string
	Text   string
	Strict bool
}

func DefaultTemplate() Template {
	return Template{Name: "default", Text: defaultPromptText, Strict: true}
}

// Render fills the placeholders of the template. Templates without both
// placeholders get the description and URL appended instead.
func (t Template) Render(description, url, pageTitle string) string {
	var prompt string
	if strings.Contains(t.Text, descriptionPlaceholder) && strings.Contains(t.Text, urlPlaceholder) {
		prompt = strings.NewReplacer(
			descriptionPlaceholder, description,
			urlPlaceholder, url,
		).Replace(t.Text)
	} else {
		prompt = fmt.Sprintf("%s\n\nDescription: %s\nURL: %s", strings.TrimSpace(t.Text), description, url)
	}

	if pageTitle != "" {
		prompt += "\nPage title: " + pageTitle
	}

	return prompt
}
