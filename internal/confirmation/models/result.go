package models

// ResultType classifies a confirmation outcome for display.
type ResultType string

const (
	ResultSuccess ResultType = "SUCCESS"
	ResultError   ResultType = "ERROR"
	ResultInfo    ResultType = "INFO"
)

// IsValid reports whether t is one of the declared result types.
func (t ResultType) IsValid() bool {
	switch t {
	case ResultSuccess, ResultError, ResultInfo:
		return true
	}
	return false
}

// Result is the outcome of a confirmation attempt: a severity and a short,
// already localized message suitable for direct display.
type Result struct {
	Type    ResultType `json:"type"`
	Message string     `json:"message"`
}

// Success builds a SUCCESS result.
func Success(message string) Result {
	return Result{Type: ResultSuccess, Message: message}
}

// Error builds an ERROR result.
func Error(message string) Result {
	return Result{Type: ResultError, Message: message}
}

// Info builds an INFO result.
func Info(message string) Result {
	return Result{Type: ResultInfo, Message: message}
}

// IsSuccess reports whether the result completes the confirmation.
func (r Result) IsSuccess() bool {
	return r.Type == ResultSuccess
}
