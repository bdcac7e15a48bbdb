package structurer

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"troublebot-backend/internal/model"
	"troublebot-backend/internal/utils"

	"github.com/google/uuid"
)

// Conversational-reply heuristic. Some system prompts ask the model to chat
// instead of answering in sections, and nothing in the reply says which style
// it used. A reply with no emphasis marker that is shorter than
// ConversationalMaxLength is treated as a plain conversational turn. Both
// values are guesses about model behaviour and can be tuned.
const (
	EmphasisMarker          = "**"
	ConversationalMaxLength = 500
)

const (
	immediateActionsWindow = 10
	wordsPerMinute         = 200
	conversationalReadTime = "1 min read"

	defaultAcknowledgment = "I understand you're experiencing a technical issue."
	defaultExpectation    = "I'll help you resolve this issue step by step."
	defaultEmpathy        = "I'm here to help you resolve this step by step."
)

var (
	defaultImmediateActions = []string{
		"Try the suggested steps above",
		"Monitor the results",
		"Report back if issues persist",
	}
	defaultFollowUpGuidance = []string{
		"If these steps don't resolve the issue, please provide more details",
		"Consider escalating to human support for complex issues",
	}
)

type header int

const (
	headerNone header = iota
	headerContext
	headerDiagnostic
	headerAnalysis
	headerTroubleshooting
	headerImmediateActions
	headerFollowUp
)

// headerMarkers is checked in order; a line opens the first header any of
// whose markers it contains. Matching is case-sensitive.
var headerMarkers = []struct {
	header  header
	markers []string
}{
	{headerContext, []string{"CONTEXT & ACKNOWLEDGMENT:", "**CONTEXT"}},
	{headerDiagnostic, []string{"DIAGNOSTIC QUESTIONS:", "**DIAGNOSTIC"}},
	{headerAnalysis, []string{"ANALYSIS & EXPLANATION:", "**ANALYSIS"}},
	{headerTroubleshooting, []string{"TROUBLESHOOTING STEPS:", "**TROUBLESHOOTING"}},
	{headerImmediateActions, []string{"IMMEDIATE ACTIONS:", "**IMMEDIATE"}},
	{headerFollowUp, []string{"FOLLOW-UP GUIDANCE:", "**FOLLOW"}},
}

var (
	stepPattern   = regexp.MustCompile(`^\d+\.`)
	bulletPattern = regexp.MustCompile(`^[•-]\s*`)
)

// Overridable in tests.
var (
	now   = time.Now
	newID = func() string {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
)

func matchHeader(line string) header {
	for _, h := range headerMarkers {
		for _, marker := range h.markers {
			if strings.Contains(line, marker) {
				return h.header
			}
		}
	}
	return headerNone
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-")
}

func stripBullet(line string) string {
	return bulletPattern.ReplaceAllString(line, "")
}

func isFollowUpLine(line string) bool {
	return strings.Contains(line, "FOLLOW-UP") || strings.Contains(line, "**FOLLOW")
}

// isConversational reports whether rawText should skip section parsing.
func isConversational(rawText string) bool {
	return !strings.Contains(rawText, EmphasisMarker) && len(rawText) < ConversationalMaxLength
}

func newSection(id, title string, kind model.SectionKind, priority model.Priority) model.StructuredResponseSection {
	s := model.StructuredResponseSection{
		ID:          id,
		Title:       title,
		Kind:        kind,
		Collapsible: true,
		Priority:    priority,
	}
	if kind.HasItems() {
		s.Items = []string{}
	}
	return s
}

// Parse turns a model reply into a StructuredResponse. It never fails:
// text that does not follow the section layout yields fewer sections.
func Parse(rawText, userMessage string) *model.StructuredResponse {
	if isConversational(rawText) {
		return parseConversational(rawText)
	}

	lines := strings.Split(rawText, "\n")
	sections := make([]model.StructuredResponseSection, 0, 4)
	current := -1

	var (
		acknowledgment   string
		expectation      string
		immediateActions []string
		followUpGuidance []string
	)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		switch matchHeader(line) {
		case headerContext:
			acknowledgment = nextTextLine(lines, i+1)
			expectation = defaultExpectation
			current = -1
			continue
		case headerDiagnostic:
			sections = append(sections, newSection("diagnostic", "Diagnostic Questions", model.SectionList, model.PriorityHigh))
			current = len(sections) - 1
			continue
		case headerAnalysis:
			sections = append(sections, newSection("analysis", "Analysis & Explanation", model.SectionText, model.PriorityMedium))
			current = len(sections) - 1
			continue
		case headerTroubleshooting:
			sections = append(sections, newSection("troubleshooting", "Troubleshooting Steps", model.SectionSteps, model.PriorityHigh))
			current = len(sections) - 1
			continue
		case headerImmediateActions:
			current = -1
			for j := i + 1; j < len(lines) && j <= i+immediateActionsWindow; j++ {
				actionLine := strings.TrimSpace(lines[j])
				if isBullet(actionLine) {
					immediateActions = append(immediateActions, stripBullet(actionLine))
				} else if isFollowUpLine(actionLine) {
					break
				}
			}
			continue
		case headerFollowUp:
			current = -1
			for j := i + 1; j < len(lines); j++ {
				guidanceLine := strings.TrimSpace(lines[j])
				if isBullet(guidanceLine) {
					followUpGuidance = append(followUpGuidance, stripBullet(guidanceLine))
				}
			}
			continue
		}

		if current < 0 || line == "" {
			continue
		}

		section := &sections[current]
		switch {
		case section.Kind == model.SectionList && isBullet(line):
			section.Items = append(section.Items, stripBullet(line))
		case section.Kind == model.SectionSteps && stepPattern.MatchString(line):
			section.Items = append(section.Items, line)
		case isBullet(line), strings.HasPrefix(line, EmphasisMarker):
			// step details and stray emphasis lines are not prose
		default:
			if section.Content != "" {
				section.Content += "\n"
			}
			section.Content += line
		}
	}

	if acknowledgment == "" {
		acknowledgment = defaultAcknowledgment
	}
	if len(immediateActions) == 0 {
		immediateActions = append([]string(nil), defaultImmediateActions...)
	}
	if len(followUpGuidance) == 0 {
		followUpGuidance = append([]string(nil), defaultFollowUpGuidance...)
	}

	return &model.StructuredResponse{
		ID:   newID(),
		Type: determineResponseType(userMessage, sections),
		Context: model.ResponseContext{
			Acknowledgment: acknowledgment,
			Expectation:    expectation,
			Empathy:        defaultEmpathy,
		},
		Sections: sections,
		Conclusion: model.ResponseConclusion{
			ImmediateActions: immediateActions,
			FollowUpGuidance: followUpGuidance,
		},
		Metadata: model.ResponseMetadata{
			EstimatedReadTime: readTime(rawText),
			Complexity:        assessComplexity(sections),
			Timestamp:         utils.ISOTimestamp(now()),
		},
	}
}

func parseConversational(rawText string) *model.StructuredResponse {
	return &model.StructuredResponse{
		ID:   newID(),
		Type: model.ResponseDiagnostic,
		Context: model.ResponseContext{
			Acknowledgment: strings.TrimSpace(rawText),
		},
		Sections: []model.StructuredResponseSection{},
		Conclusion: model.ResponseConclusion{
			ImmediateActions: []string{},
			FollowUpGuidance: []string{},
		},
		Metadata: model.ResponseMetadata{
			EstimatedReadTime: conversationalReadTime,
			Complexity:        model.ComplexitySimple,
			Timestamp:         utils.ISOTimestamp(now()),
		},
	}
}

// nextTextLine returns the first non-blank line at or after start, or "" if
// a header comes first.
func nextTextLine(lines []string, start int) string {
	for j := start; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			continue
		}
		if matchHeader(line) != headerNone {
			return ""
		}
		return line
	}
	return ""
}

func determineResponseType(userMessage string, sections []model.StructuredResponseSection) model.ResponseType {
	for _, s := range sections {
		if s.ID == "diagnostic" || s.ID == "troubleshooting" {
			return model.ResponseTroubleshooting
		}
	}

	message := strings.ToLower(userMessage)
	if containsAny(message, "how", "what", "why") {
		return model.ResponseExplanation
	}
	if containsAny(message, "step", "guide", "install") {
		return model.ResponseInstruction
	}
	return model.ResponseDiagnostic
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func readTime(text string) string {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return fmt.Sprintf("%d min read", minutes)
}

func assessComplexity(sections []model.StructuredResponseSection) model.Complexity {
	var hasSteps, hasDiagnostic bool
	for _, s := range sections {
		if s.Kind == model.SectionSteps {
			hasSteps = true
		}
		if s.ID == "diagnostic" {
			hasDiagnostic = true
		}
	}

	switch {
	case len(sections) <= 2 && !hasSteps:
		return model.ComplexitySimple
	case len(sections) <= 4 && !(hasDiagnostic && hasSteps):
		return model.ComplexityModerate
	default:
		return model.ComplexityComplex
	}
}
