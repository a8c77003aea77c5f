// internal/domain/identity/result.go
package identity

import "strings"

// Error is one structured failure carried by a Result.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Result is the outcome of a store write that can fail without an error,
// which today means an optimistic concurrency conflict.
type Result struct {
	Succeeded bool    `json:"succeeded"`
	Errors    []Error `json:"errors,omitempty"`
}

// Success is the result of a write that went through.
var Success = Result{Succeeded: true}

// Failed builds a failed result from errs.
func Failed(errs ...Error) Result {
	return Result{Succeeded: false, Errors: errs}
}

// HasCode reports whether the result carries an error with code.
func (r Result) HasCode(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

func (r Result) String() string {
	if r.Succeeded {
		return "Succeeded"
	}
	codes := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	return "Failed : " + strings.Join(codes, ",")
}

// CodeConcurrencyFailure identifies a stale concurrency stamp.
const CodeConcurrencyFailure = "ConcurrencyFailure"

// ErrorDescriber produces the structured errors the stores report.
// The zero value uses the default descriptions.
type ErrorDescriber struct {
	ConcurrencyFailureText string
}

// ConcurrencyFailure describes an update or delete against a stale version.
func (d ErrorDescriber) ConcurrencyFailure() Error {
	desc := d.ConcurrencyFailureText
	if desc == "" {
		desc = "Optimistic concurrency failure, object has been modified."
	}
	return Error{Code: CodeConcurrencyFailure, Description: desc}
}
