package browserflow

// StepFormatter interface for pretty output during step enumeration
type StepFormatter interface {
	PrintStepAction(stepNumber int, actionName string, params map[string]any)
}
