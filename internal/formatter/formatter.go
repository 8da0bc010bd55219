// Package formatter renders jobs as Telegram HTML messages.
package formatter

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/amishk599/upwatch/internal/model"
)

const (
	maxDescriptionRunes = 300
	truncatedRunes      = 297
)

var newlineRuns = regexp.MustCompile(`\n+`)

type featureLabel struct {
	icon  string
	label string
}

var featureLabels = map[model.FeatureName]featureLabel{
	model.FeatureHourlyRate:      {"⏳", "Hourly Rate"},
	model.FeatureBudget:          {"💰", "Budget"},
	model.FeatureExperienceLevel: {"🎓", "Experience Level"},
	model.FeatureProjectType:     {"📌", "Project Type"},
	model.FeatureDuration:        {"⏲️", "Duration"},
	model.FeatureHoursPerWeek:    {"⏱️", "Hours Per Week"},
	model.FeatureLocation:        {"📍", "Location"},
}

// FormatNotification renders a job as a Telegram HTML message. topicLabel is
// shown as a header line when non-empty. The output depends only on its inputs.
func FormatNotification(job model.Job, topicLabel string) string {
	var b strings.Builder

	if topicLabel != "" {
		fmt.Fprintf(&b, "🔎 Topic: <b>%s</b>\n", html.EscapeString(topicLabel))
	}
	fmt.Fprintf(&b, "📢 <b>%s</b>\n", html.EscapeString(strings.TrimSpace(job.Title)))
	fmt.Fprintf(&b, "📝 %s\n", html.EscapeString(Description(job.Description)))

	for _, f := range job.Features.Present() {
		fl, ok := featureLabels[f.Name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s %s: %s\n", fl.icon, fl.label, html.EscapeString(f.Value))
	}

	link := html.EscapeString(job.Link)
	fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">%s</a>", link, link)

	return b.String()
}

// Description normalizes line breaks and cuts text longer than 300 runes down
// to 297 runes plus "...".
func Description(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = newlineRuns.ReplaceAllString(text, "\n")

	if utf8.RuneCountInString(text) <= maxDescriptionRunes {
		return strings.TrimSpace(text)
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:truncatedRunes])) + "..."
}
