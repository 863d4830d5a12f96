package errors

import (
	"fmt"

	"github.com/fatih/color"
)

// ErrorLevel represents the severity of a diagnostic.
type ErrorLevel string

const (
	Fatal ErrorLevel = "error"
	Note  ErrorLevel = "note"
)

// PassError is a structured fatal diagnostic raised by a pass when it
// hits an IR shape it is not designed to handle (§7 Precondition
// failure) or a declared dependency is absent (§7 Missing dependency).
// A precondition PassError carries the offending IR's text in
// OffendingIR; a missing-dependency PassError leaves it empty.
type PassError struct {
	Level       ErrorLevel
	Code        string // error code like E1001
	Pass        string // pass name, e.g. "lock-insertion"
	Message     string
	OffendingIR string // text of the offending instruction/global, if any
}

func (e *PassError) Error() string {
	if e.OffendingIR != "" {
		return fmt.Sprintf("[%s] %s: %s (at: %s)", e.Code, e.Pass, e.Message, e.OffendingIR)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Pass, e.Message)
}

// NewPreconditionError builds a fatal precondition-failure diagnostic.
// offendingIR should be the String() of the IR entity the pass refused
// to rewrite.
func NewPreconditionError(pass, code, message, offendingIR string) *PassError {
	return &PassError{Level: Fatal, Code: code, Pass: pass, Message: message, OffendingIR: offendingIR}
}

// NewMissingDependencyError builds a driver-level diagnostic for a pass
// invoked without one of its declared prerequisites having run.
func NewMissingDependencyError(pass, dependency string) *PassError {
	return &PassError{
		Level:   Fatal,
		Code:    ErrMissingDependency,
		Pass:    pass,
		Message: fmt.Sprintf("requires %s to have run first", dependency),
	}
}

// Format renders err the way the pipeline driver prints fatal
// diagnostics to the terminal: a colored [code] pass: message line,
// followed by the offending IR text when present.
func Format(err *PassError) string {
	levelColor := color.New(color.FgRed, color.Bold).SprintFunc()
	if err.Level == Note {
		levelColor = color.New(color.FgBlue, color.Bold).SprintFunc()
	}
	header := fmt.Sprintf("%s[%s]: %s: %s", levelColor(string(err.Level)), err.Code, err.Pass, err.Message)
	if err.OffendingIR == "" {
		return header
	}
	dim := color.New(color.Faint).SprintFunc()
	return header + "\n  " + dim("--> ") + err.OffendingIR
}
