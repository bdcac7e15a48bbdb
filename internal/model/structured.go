package model

// SectionKind selects how a section is rendered.
type SectionKind string

const (
	SectionText    SectionKind = "text"
	SectionList    SectionKind = "list"
	SectionSteps   SectionKind = "steps"
	SectionCode    SectionKind = "code"
	SectionWarning SectionKind = "warning"
	SectionSuccess SectionKind = "success"
)

// HasItems reports whether sections of this kind carry Items.
func (k SectionKind) HasItems() bool {
	return k == SectionList || k == SectionSteps
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type ResponseType string

const (
	ResponseTroubleshooting ResponseType = "troubleshooting"
	ResponseExplanation     ResponseType = "explanation"
	ResponseInstruction     ResponseType = "instruction"
	ResponseDiagnostic      ResponseType = "diagnostic"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// StructuredResponseSection is one titled block of an assistant answer.
// Items is only set for list and steps sections.
type StructuredResponseSection struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	Kind        SectionKind `json:"type"`
	Items       []string    `json:"items,omitempty"`
	Collapsible bool        `json:"collapsible"`
	Priority    Priority    `json:"priority,omitempty"`
}

type ResponseContext struct {
	Acknowledgment string `json:"acknowledgment"`
	Expectation    string `json:"expectation"`
	Empathy        string `json:"empathy,omitempty"`
}

type ResponseConclusion struct {
	ImmediateActions          []string `json:"immediateActions"`
	FollowUpGuidance          []string `json:"followUpGuidance"`
	HelpResourcesOrEscalation string   `json:"helpResourcesOrEscalation,omitempty"`
}

type ResponseMetadata struct {
	EstimatedReadTime string     `json:"estimatedReadTime"`
	Complexity        Complexity `json:"complexity"`
	Timestamp         string     `json:"timestamp"`
}

// StructuredResponse is the parsed form of one assistant turn.
type StructuredResponse struct {
	ID         string                      `json:"id"`
	Type       ResponseType                `json:"type"`
	Context    ResponseContext             `json:"context"`
	Sections   []StructuredResponseSection `json:"sections"`
	Conclusion ResponseConclusion          `json:"conclusion"`
	Metadata   ResponseMetadata            `json:"metadata"`
}
