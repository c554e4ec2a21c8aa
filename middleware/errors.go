package middleware

import (
	"fmt"
	"strings"

	"tnctl/types"
)

// MethodNotFoundError is returned when middlewared has no such method. Modules use it to
// tell an older TrueNAS release apart from a real failure.
type MethodNotFoundError struct {
	Method  string
	Message string
}

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("Method %s Not Found. Error: %s", e.Method, e.Message)
}

// CallError is any other failed call
type CallError struct {
	Method     string
	Errname    string
	Reason     string
	Trace      string
	ExitStatus int
}

func (e *CallError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Method)

	if e.Errname != "" {
		sb.WriteString(" [" + e.Errname + "]")
	}

	if e.ExitStatus != 0 {
		sb.WriteString(fmt.Sprintf(" (exit status %d)", e.ExitStatus))
	}

	sb.WriteString(": " + e.Reason)

	return sb.String()
}

// JobError is returned when a job ends in FAILED or ABORTED
type JobError struct {
	JobID     int
	Method    string
	State     string
	Err       string
	Exception string
	Progress  *types.JobProgress
}

func (e *JobError) Error() string {
	msg := e.Err
	if msg == "" {
		msg = "no error message"
	}
	return fmt.Sprintf("job %d (%s) %s: %s", e.JobID, e.Method, strings.ToLower(e.State), msg)
}

// The middleware reports a missing method as ENOMETHOD, or as JSON-RPC -32601
func isMethodNotFound(errname string, code int) bool {
	return errname == "ENOMETHOD" || code == -32601
}
