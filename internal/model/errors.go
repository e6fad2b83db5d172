package model

import (
	"errors"
	"fmt"
)

var (
	ErrNothingToSend   = errors.New("message has no text and no attachments")
	ErrNoActiveSession = errors.New("no active session")
	ErrNoPendingClose  = errors.New("no tab is pending close")
	ErrNotFound        = errors.New("not found")
	ErrInvalidSubject  = errors.New("session subject must be a patient id")
)

// HistoryFetchError reports that the upstream history (or doctors view) could
// not be fetched. Status is 0 for transport failures.
type HistoryFetchError struct {
	Subject string
	Status  int
	Err     error
}

func (e *HistoryFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch history for %s: upstream status %d", e.Subject, e.Status)
	}
	return fmt.Sprintf("fetch history for %s: %v", e.Subject, e.Err)
}

func (e *HistoryFetchError) Unwrap() error { return e.Err }

type AnalysisError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *AnalysisError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("analysis %s: upstream status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("analysis %s: %v", e.Endpoint, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// MalformedResponseError is a 2xx analysis reply without content. Callers
// substitute a placeholder instead of failing.
type MalformedResponseError struct {
	Endpoint string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("analysis %s: response has no content", e.Endpoint)
}

type TabOperationRejected struct {
	Op     string
	Target string
	Reason string
}

func (e *TabOperationRejected) Error() string {
	return fmt.Sprintf("tab %s %q rejected: %s", e.Op, e.Target, e.Reason)
}

type RegenerateTargetInvalid struct {
	Key    string
	Index  int
	Reason string
}

func (e *RegenerateTargetInvalid) Error() string {
	return fmt.Sprintf("cannot regenerate %s[%d]: %s", e.Key, e.Index, e.Reason)
}

type AlreadyActiveError struct {
	Active    string
	Requested string
}

func (e *AlreadyActiveError) Error() string {
	return fmt.Sprintf("session already active for %s, cannot start %s", e.Active, e.Requested)
}
