package nodes

import (
	"regexp"
	"strings"

	"github.com/randalmurphal/healthops/pkg/healthops/state"
)

// Extraction is the structured content pulled out of a model response.
type Extraction struct {
	Summary         string
	Findings        []string
	Recommendations []string
	ActionItems     []state.ActionItem
}

type section int

const (
	sectionNone section = iota
	sectionFindings
	sectionRecommendations
	sectionActions
)

var (
	bulletPrefix = regexp.MustCompile(`^(?:[-*•]\s+|\d+[.)]\s+)`)
	mdMarkers    = strings.NewReplacer("**", "", "__", "", "`", "")

	// Whole words only: "flow" and "below" are not "low".
	highPriority = regexp.MustCompile(`(?i)\b(?:urgent|urgently|immediate|immediately|critical|asap|high)\b`)
	lowPriority  = regexp.MustCompile(`(?i)\blow\b`)
)

// Extract splits free text into summary, findings, recommendations and
// action items. The summary is the first non-empty line. Section headings
// ("Findings:", "## Recommendations", "Next steps") switch the current
// section and lines below a heading are collected into it. A heading of
// the form "Label: text" also contributes its text.
func Extract(text string) Extraction {
	var ex Extraction
	current := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if sec, rest, ok := heading(line); ok {
			current = sec
			if rest == "" {
				continue
			}
			line = rest
		}
		item := cleanLine(bulletPrefix.ReplaceAllString(line, ""))
		if item == "" {
			continue
		}
		if ex.Summary == "" {
			ex.Summary = item
		}
		switch current {
		case sectionFindings:
			ex.Findings = append(ex.Findings, item)
		case sectionRecommendations:
			ex.Recommendations = append(ex.Recommendations, item)
		case sectionActions:
			ex.ActionItems = append(ex.ActionItems, state.ActionItem{
				Description: item,
				Priority:    actionPriority(item),
			})
		}
	}
	return ex
}

// heading reports whether line is a section heading and, for the
// "Label: rest" form, returns the text after the colon. Bulleted and
// numbered lines are never headings.
func heading(line string) (section, string, bool) {
	if bulletPrefix.MatchString(line) {
		return sectionNone, "", false
	}
	label, rest := line, ""
	if i := strings.Index(line, ":"); i >= 0 {
		label, rest = line[:i], strings.TrimSpace(line[i+1:])
	}
	label = strings.ToLower(cleanLine(label))
	if label == "" || len(strings.Fields(label)) > 4 {
		return sectionNone, "", false
	}
	// Plain prose lines longer than two words are not headings.
	if !strings.Contains(line, ":") && !strings.HasPrefix(line, "#") && len(strings.Fields(label)) > 2 {
		return sectionNone, "", false
	}

	switch {
	case containsAny(label, "recommend", "suggest"):
		return sectionRecommendations, rest, true
	case containsAny(label, "finding", "insight", "observation", "issue"):
		return sectionFindings, rest, true
	case containsAny(label, "action", "next step"):
		return sectionActions, rest, true
	case containsAny(label, "timeline", "summary", "overview", "context"):
		return sectionNone, rest, true
	}
	return sectionNone, "", false
}

func actionPriority(text string) string {
	switch {
	case highPriority.MatchString(text):
		return "high"
	case lowPriority.MatchString(text):
		return "low"
	}
	return "medium"
}

func cleanLine(s string) string {
	s = mdMarkers.Replace(s)
	s = strings.TrimLeft(s, "# ")
	return strings.TrimSpace(s)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
