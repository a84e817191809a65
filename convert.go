package browserflow

import (
	"fmt"
	"time"
)

// CapturedEventType identifies the kind of a captured browser event.
type CapturedEventType string

const (
	EventNavigation CapturedEventType = "navigation"
	EventClick      CapturedEventType = "click"
	EventInput      CapturedEventType = "input"
)

// TargetDescriptor describes the DOM element a captured event targeted, as
// observed at capture time.
type TargetDescriptor struct {
	TagName   string  `json:"tag_name,omitempty"`
	Text      string  `json:"text,omitempty"`
	ID        string  `json:"id,omitempty"`
	ClassName string  `json:"class_name,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
}

// CapturedEvent is one raw browser event captured during a manual
// demonstration: a navigation, a click, or an input.
type CapturedEvent struct {
	Type      CapturedEventType `json:"type"`
	URL       string            `json:"url,omitempty"`
	Value     string            `json:"value,omitempty"`
	Target    *TargetDescriptor `json:"target,omitempty"`
	Timestamp float64           `json:"timestamp,omitempty"`
}

// ConvertCapturedEvents converts a sequence of captured browser events into
// a flow document, enabling flows to originate from direct user
// demonstration. Output order equals input event order; consecutive
// same-type events are not merged. Events of unknown type are skipped.
//
// Element indexes for clicks and inputs are assigned by output position: no
// real DOM index is resolved at capture time, so the index is an
// approximation the replaying agent must reconcile against the live page.
func ConvertCapturedEvents(events []CapturedEvent, taskDescription string) *Flow {
	var actions []ActionInvocation
	for _, event := range events {
		switch event.Type {
		case EventNavigation:
			actions = append(actions, ActionInvocation{
				ActionGoToURL: {
					"url":     event.URL,
					"new_tab": false,
				},
			})
		case EventClick:
			actions = append(actions, ActionInvocation{
				ActionClickElementByIndex: {
					"index":              len(actions) + 1,
					"while_holding_ctrl": false,
				},
			})
		case EventInput:
			actions = append(actions, ActionInvocation{
				ActionInputText: {
					"index":          len(actions) + 1,
					"text":           event.Value,
					"clear_existing": true,
				},
			})
		}
	}

	flow := &Flow{
		OriginalUserTask: taskDescription,
		History:          make([]*Step, 0, len(actions)),
	}

	now := float64(time.Now().Unix())
	for i, action := range actions {
		flow.History = append(flow.History, &Step{
			ModelOutput: &ModelOutput{
				EvaluationPreviousGoal: "Manual recording step",
				Memory:                 fmt.Sprintf("User manually performed action %d", i+1),
				NextGoal:               fmt.Sprintf("Execute recorded action: %s", action.Name()),
				Action:                 []ActionInvocation{action},
				Thinking:               fmt.Sprintf("Recorded from manual user demonstration - step %d", i+1),
			},
			Result: []*StepResult{
				{
					IsDone:          i == len(actions)-1,
					Error:           nil,
					IncludeInMemory: true,
				},
			},
			State: &StepState{
				URL:   "recorded_manually",
				Title: "Manual Recording",
			},
			Metadata: &StepMetadata{
				StepStartTime: now - float64(len(actions)-i),
				StepEndTime:   now - float64(len(actions)-i) + 1,
				StepNumber:    i + 1,
			},
		})
	}
	return flow
}
