package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBusy           = errors.New("another operation is in progress for this response")
	ErrClosed         = errors.New("response session closed")
	ErrDone           = errors.New("response already submitted")
	ErrWrongStep      = errors.New("operation not allowed in the current step")
	ErrAnswerRequired = errors.New("an answer is required for this question")
	ErrUnknownOption  = errors.New("answer does not match any option of the question")
	ErrNothingToRetry = errors.New("no failed submission to retry")
	ErrSubmitPending  = errors.New("submission failed, retry it to finish the response")
	ErrSurveyLoad     = errors.New("survey could not be loaded")
	ErrSubmit         = errors.New("submission failed")
	ErrStateMismatch  = errors.New("stored response does not match the survey")
	ErrEvicted        = fmt.Errorf("%w after being idle", ErrClosed)
)

// ContactError lists the contact fields that blocked the contact step
type ContactError struct {
	Missing []string // Required fields left empty
	Invalid []string // Fields with a malformed value
}

func (e *ContactError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required contact fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid contact fields: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}
