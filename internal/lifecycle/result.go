package lifecycle

import "errors"

// Code maps an engine outcome to a transport-independent status class.
type Code string

const (
	CodeSuccess         Code = "success"
	CodeInvalidInput    Code = "invalid-input"
	CodeNotFound        Code = "not-found"
	CodeConflict        Code = "conflict"
	CodeInvalidState    Code = "invalid-state"
	CodeInternalFailure Code = "internal-failure"
)

// Outcome tells callers whether state was touched.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeCompensated Outcome = "compensated" // written, then reverted
)

// Result is the structured reply of an engine operation.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Code    Code    `json:"code"`
	Message string  `json:"message"`
	Data    any     `json:"data,omitempty"`
}

// OK wraps a successful value.
func OK(msg string, data any) Result {
	return Result{Outcome: OutcomeOK, Code: CodeSuccess, Message: msg, Data: data}
}

// ResultFrom builds a Result from an operation's return values.  A nil err
// yields OK(msg, data); otherwise data is dropped and the message comes from
// the error.
func ResultFrom(msg string, data any, err error) Result {
	if err == nil {
		return OK(msg, data)
	}
	r := Result{Outcome: OutcomeFailed, Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		r.Message = e.Msg
	}
	switch KindOf(err) {
	case KindValidation:
		r.Code = CodeInvalidInput
	case KindNotFound:
		r.Code = CodeNotFound
	case KindConflict:
		r.Code = CodeConflict
	case KindInvalidTransition:
		r.Code = CodeInvalidState
	case KindCompensatedFailure:
		r.Outcome = OutcomeCompensated
		r.Code = CodeInternalFailure
	default:
		r.Code = CodeInternalFailure
		r.Message = "storage failure"
	}
	return r
}
