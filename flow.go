package browserflow

import "strings"

// Action type names recognized by the replay and conversion machinery.
// The set mirrors the browser agent's action vocabulary; actions outside
// this set are carried through flows untouched.
const (
	ActionGoToURL             = "go_to_url"
	ActionClickElementByIndex = "click_element_by_index"
	ActionInputText           = "input_text"
)

// ActionInvocation is a single-key mapping from an action type name to that
// action's parameters, e.g. {"go_to_url": {"url": "https://example.com"}}.
type ActionInvocation map[string]map[string]any

// Name returns the action type name of the invocation. A well-formed
// invocation has exactly one key; if the invocation is empty, Name returns
// an empty string.
func (a ActionInvocation) Name() string {
	for name := range a {
		return name
	}
	return ""
}

// Parameters returns the parameter map for the invocation's action type.
func (a ActionInvocation) Parameters() map[string]any {
	return a[a.Name()]
}

// StringParameter returns the named parameter as a string, or an empty
// string when absent or not a string.
func (a ActionInvocation) StringParameter(name string) string {
	s, _ := a.Parameters()[name].(string)
	return s
}

// ModelOutput holds the agent's rationale and the actions it chose for one
// step. Only Action is interpreted during replay; the free-text fields serve
// as a fallback source of a task description.
type ModelOutput struct {
	EvaluationPreviousGoal string             `json:"evaluation_previous_goal,omitempty"`
	Memory                 string             `json:"memory,omitempty"`
	NextGoal               string             `json:"next_goal,omitempty"`
	Action                 []ActionInvocation `json:"action"`
	Thinking               string             `json:"thinking,omitempty"`
}

// StepResult records the outcome markers of one step. These are carried
// through flows but not interpreted, except for IsDone which marks the
// terminal step.
type StepResult struct {
	IsDone                          bool    `json:"is_done"`
	Error                           *string `json:"error"`
	IncludeExtractedContentOnlyOnce bool    `json:"include_extracted_content_only_once,omitempty"`
	IncludeInMemory                 bool    `json:"include_in_memory,omitempty"`
}

// StepState captures the observed page context at the step boundary.
type StepState struct {
	URL   string `json:"url,omitempty"`
	Title string `json:"title,omitempty"`
}

// StepMetadata carries step timing and ordinal information.
type StepMetadata struct {
	StepStartTime float64 `json:"step_start_time,omitempty"`
	StepEndTime   float64 `json:"step_end_time,omitempty"`
	StepNumber    int     `json:"step_number,omitempty"`
}

// Step is one unit of agent or manual action within a flow.
type Step struct {
	ModelOutput *ModelOutput  `json:"model_output,omitempty"`
	Result      []*StepResult `json:"result,omitempty"`
	State       *StepState    `json:"state,omitempty"`
	Metadata    *StepMetadata `json:"metadata,omitempty"`
}

// Actions returns the step's action invocations in order.
func (s *Step) Actions() []ActionInvocation {
	if s.ModelOutput == nil {
		return nil
	}
	return s.ModelOutput.Action
}

// Flow is the persisted unit of replay: the original task (when known) and
// the ordered history of steps taken to accomplish it.
type Flow struct {
	OriginalUserTask string  `json:"original_user_task,omitempty"`
	History          []*Step `json:"history"`
}

// Validate checks that the flow is replayable. A flow with an empty history
// has nothing to replay and is reported as a malformed document.
func (f *Flow) Validate() error {
	if len(f.History) == 0 {
		return NewFlowError(ErrorTypeMalformedDocument, "flow history is empty")
	}
	return nil
}

// Actions returns all action invocations across the flow's history, in step
// order then within-step action order.
func (f *Flow) Actions() []ActionInvocation {
	var actions []ActionInvocation
	for _, step := range f.History {
		actions = append(actions, step.Actions()...)
	}
	return actions
}

// fallbackTask is used when a flow carries no original task and no usable
// rationale text.
const fallbackTask = "the recorded browser actions"

// DeriveTask returns the best available task description for the flow: the
// original user task when recorded, otherwise the first step's rationale
// text, otherwise a fixed placeholder.
func (f *Flow) DeriveTask() string {
	if task := strings.TrimSpace(f.OriginalUserTask); task != "" {
		return task
	}
	if len(f.History) > 0 && f.History[0].ModelOutput != nil {
		out := f.History[0].ModelOutput
		for _, text := range []string{out.Thinking, out.NextGoal, out.Memory} {
			if text = strings.TrimSpace(text); text != "" {
				return text
			}
		}
	}
	return fallbackTask
}

// SanitizeFlowName reduces a requested flow name to a filesystem-safe string
// by keeping only letters, digits, underscores and hyphens.
func SanitizeFlowName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
