package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// ServiceType discriminates which artifact variant an AnalysisResult
// carries.
type ServiceType string

const (
	ServiceRecruiting ServiceType = "recruiting"
	ServiceProfile    ServiceType = "profile"
	ServiceBranding   ServiceType = "branding"
)

// ArtifactMetadata is the nested metadata block attached to every
// generated artifact.
type ArtifactMetadata struct {
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	DurationMs  int64     `json:"durationMs,omitempty"`
	Version     int       `json:"version,omitempty"`
}

// JobPackage is the recruiting artifact: a generated job-description
// package.
type JobPackage struct {
	Title            string   `json:"title"`
	Summary          string   `json:"summary"`
	Responsibilities []string `json:"responsibilities"`
	Requirements     []string `json:"requirements"`
	Benefits         []string `json:"benefits,omitempty"`
	SalaryRange      string   `json:"salaryRange,omitempty"`
}

// ProfileCard is one card of a business-profile card set.
type ProfileCard struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Icon    string `json:"icon,omitempty"`
}

// BrandKit is the branding artifact: tone and messaging guidance.
type BrandKit struct {
	Tone      string   `json:"tone"`
	Tagline   string   `json:"tagline,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Audiences []string `json:"audiences,omitempty"`
}

// AnalysisResult is the immutable snapshot produced by one successful
// generation job. Exactly one variant field is set, according to
// ServiceType. Results are replaced wholesale, never mutated.
type AnalysisResult struct {
	ServiceType ServiceType
	Recruiting  *JobPackage
	Profile     []ProfileCard
	Branding    *BrandKit
	Metadata    ArtifactMetadata
}

type analysisResultJSON struct {
	ServiceType ServiceType      `json:"serviceType"`
	Recruiting  *JobPackage      `json:"recruiting,omitempty"`
	Profile     []ProfileCard    `json:"profile,omitempty"`
	Branding    *BrandKit        `json:"branding,omitempty"`
	Metadata    ArtifactMetadata `json:"metadata"`
}

// UnmarshalJSON enforces the discriminant: the variant named by
// serviceType must be present, the others are ignored.
func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var raw analysisResultJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := AnalysisResult{ServiceType: raw.ServiceType, Metadata: raw.Metadata}
	switch raw.ServiceType {
	case ServiceRecruiting:
		if raw.Recruiting == nil {
			return fmt.Errorf("recruiting result without recruiting payload")
		}
		out.Recruiting = raw.Recruiting
	case ServiceProfile:
		if len(raw.Profile) == 0 {
			return fmt.Errorf("profile result without cards")
		}
		out.Profile = raw.Profile
	case ServiceBranding:
		if raw.Branding == nil {
			return fmt.Errorf("branding result without branding payload")
		}
		out.Branding = raw.Branding
	default:
		return fmt.Errorf("unknown service type %q", raw.ServiceType)
	}

	*r = out
	return nil
}

// MarshalJSON writes the populated variant only.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(analysisResultJSON{
		ServiceType: r.ServiceType,
		Recruiting:  r.Recruiting,
		Profile:     r.Profile,
		Branding:    r.Branding,
		Metadata:    r.Metadata,
	})
}

// FieldKind describes the input widget a missing field expects.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldFile     FieldKind = "file"
)

// MissingFieldDescriptor describes one gap the backend identified.
// The same fieldId may be reported by several cards; aggregation
// de-duplicates by fieldId.
type MissingFieldDescriptor struct {
	FieldID       string    `json:"fieldId"`
	Label         string    `json:"label"`
	Kind          FieldKind `json:"kind"`
	HelpText      string    `json:"helpText,omitempty"`
	AcceptedTypes []string  `json:"acceptedTypes,omitempty"`
	MaxSize       int64     `json:"maxSize,omitempty"`
}

// QuestionPriority orders refinement questions by value.
type QuestionPriority string

const (
	PriorityHigh   QuestionPriority = "high"
	PriorityMedium QuestionPriority = "medium"
	PriorityLow    QuestionPriority = "low"
)

// RefinementQuestion is one open question with exactly one answer slot,
// keyed by ID (not by fieldId).
type RefinementQuestion struct {
	ID        string           `json:"id"`
	Question  string           `json:"question"`
	CardTitle string           `json:"cardTitle"`
	Priority  QuestionPriority `json:"priority"`
	Kind      FieldKind        `json:"kind"`
}

// StrategicRecommendation is a suggested action. Its TargetField, when
// set, is excluded from answer pre-fill so the user acts on it
// consciously.
type StrategicRecommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TargetField string `json:"targetField,omitempty"`
}

// AnalysisCard is one node of the completion-analysis tree.
type AnalysisCard struct {
	Title           string                    `json:"title"`
	MissingFields   []MissingFieldDescriptor  `json:"missingFields,omitempty"`
	Questions       []RefinementQuestion      `json:"questions,omitempty"`
	Recommendations []StrategicRecommendation `json:"recommendations,omitempty"`
}

// CompletionAnalysis is the response of the completion-analysis
// endpoint: the card tree plus the server-side analysis timestamp.
type CompletionAnalysis struct {
	Cards          []AnalysisCard `json:"cards"`
	LastAnalyzedAt time.Time      `json:"lastAnalyzedAt"`
}
