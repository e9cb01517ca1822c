// Package job defines the durable record for a single slide-generation
// request and the mutually-exclusive store that persists it.
package job

import (
	"encoding/json"
	"strings"
	"time"
)

// Aspect is the slide's canvas proportion.
type Aspect string

const (
	Aspect16x9 Aspect = "16:9"
	Aspect4x3  Aspect = "4:3"
)

// Valid reports whether a is one of the supported aspect ratios.
func (a Aspect) Valid() bool {
	return a == Aspect16x9 || a == Aspect4x3
}

// Canvas is the fixed pixel size and safe margin a slide must occupy
// for a given aspect.
type Canvas struct {
	WidthPx      int
	HeightPx     int
	SafeMarginPx int
}

// CanvasFor returns the canvas dimensions for a, defaulting to 16:9 for
// an unrecognized aspect.
func CanvasFor(a Aspect) Canvas {
	if a == Aspect4x3 {
		return Canvas{WidthPx: 1024, HeightPx: 768, SafeMarginPx: 48}
	}
	return Canvas{WidthPx: 1920, HeightPx: 1080, SafeMarginPx: 64}
}

// Status is the observable lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is a terminal status.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Step names the pipeline stage currently in flight. The empty string means
// "absent" — terminal jobs never carry a step.
type Step string

const (
	StepPlan         Step = "Plan"
	StepResearchWeb  Step = "Research(Web)"
	StepResearchFile Step = "Research(File)"
	StepGenerateHTML Step = "Generate HTML"
	StepValidate     Step = "Validate"
)

// Input is the immutable request that created a job.
type Input struct {
	JobID        string `json:"jobId"`
	Prompt       string `json:"prompt"`
	Aspect       Aspect `json:"aspect"`
	ImageDataURL string `json:"imageDataUrl,omitempty"`
}

const (
	maxPromptChars = 10000
	maxImageBytes  = 4 * 1024 * 1024
)

// Validate checks the admission rules from the wire contract. It returns a
// human-readable message suitable for a 400 response.
func (in Input) Validate() error {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return errValidation("prompt is required.")
	}
	if len([]rune(in.Prompt)) > maxPromptChars {
		return errValidation("prompt must be at most 10000 characters.")
	}
	if !in.Aspect.Valid() {
		return errValidation("aspect must be \"16:9\" or \"4:3\".")
	}
	return nil
}

// SourceSet is a case-insensitive, append-only set of citation strings. The
// zero value is ready to use.
type SourceSet struct {
	byLower map[string]string
	order   []string
}

// Add inserts v if no case-insensitive duplicate is already present. It
// reports whether v was newly added.
func (s *SourceSet) Add(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	if s.byLower == nil {
		s.byLower = make(map[string]string)
	}
	key := strings.ToLower(v)
	if _, ok := s.byLower[key]; ok {
		return false
	}
	s.byLower[key] = v
	s.order = append(s.order, v)
	return true
}

// Items returns the set members in insertion order.
func (s SourceSet) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len reports the number of distinct members.
func (s SourceSet) Len() int { return len(s.order) }

// Sources tracks the citations surfaced while researching a job.
type Sources struct {
	URLs  SourceSet
	Files SourceSet
}

// sourcesWire is the JSON-facing projection of Sources.
type sourcesWire struct {
	URLs  []string `json:"urls"`
	Files []string `json:"files"`
}

// State is the observable lifecycle record for a job.
type State struct {
	Status         Status    `json:"status"`
	Step           Step      `json:"step,omitempty"`
	Error          string    `json:"error,omitempty"`
	Sources        Sources   `json:"sources"`
	ResultHTMLPath string    `json:"resultHtmlPath,omitempty"`
	PreviewPNGPath string    `json:"previewPngPath,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// stateWire mirrors State with Sources replaced by its wire projection, so
// encoding/json can (de)serialize the case-insensitive sets transparently.
type stateWire struct {
	Status         Status      `json:"status"`
	Step           Step        `json:"step,omitempty"`
	Error          string      `json:"error,omitempty"`
	Sources        sourcesWire `json:"sources"`
	ResultHTMLPath string      `json:"resultHtmlPath,omitempty"`
	PreviewPNGPath string      `json:"previewPngPath,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	w := stateWire{
		Status:         s.Status,
		Step:           s.Step,
		Error:          s.Error,
		Sources:        sourcesWire{URLs: s.Sources.URLs.Items(), Files: s.Sources.Files.Items()},
		ResultHTMLPath: s.ResultHTMLPath,
		PreviewPNGPath: s.PreviewPNGPath,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var w stateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Status = w.Status
	s.Step = w.Step
	s.Error = w.Error
	s.ResultHTMLPath = w.ResultHTMLPath
	s.PreviewPNGPath = w.PreviewPNGPath
	s.CreatedAt = w.CreatedAt
	s.UpdatedAt = w.UpdatedAt
	s.Sources = Sources{}
	for _, u := range w.Sources.URLs {
		s.Sources.URLs.Add(u)
	}
	for _, f := range w.Sources.Files {
		s.Sources.Files.Add(f)
	}
	return nil
}

// Clone returns a deep copy of s, safe to mutate independently.
func (s State) Clone() State {
	c := s
	c.Sources = Sources{}
	for _, u := range s.Sources.URLs.Items() {
		c.Sources.URLs.Add(u)
	}
	for _, f := range s.Sources.Files.Items() {
		c.Sources.Files.Add(f)
	}
	return c
}

// ValidationError signals that an admission request failed wire validation.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func errValidation(msg string) error { return &ValidationError{Msg: msg} }

// NotFoundError signals that a job id is unknown to the store.
type NotFoundError struct{ JobID string }

func (e *NotFoundError) Error() string { return "job not found: " + e.JobID }
