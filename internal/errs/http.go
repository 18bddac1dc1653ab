// Package errs holds the error shape every API response uses: a status, a
// machine-readable code, a message and optional per-field errors.
package errs

import "strings"

// FieldError is one failed field in a request body or path.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType names a follow-up the client is expected to take.
type ActionType string

// Action is an optional client instruction attached to an error.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is returned by handlers and middleware and serialized as is by
// the global error handler. Override lets that handler replace Message.
type HTTPError struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Status   int          `json:"status"`
	Override bool         `json:"override"`
	Errors   []FieldError `json:"errors"`
	Action   *Action      `json:"action"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

// MakeUpperCaseWithUnderscores turns status text into a code,
// e.g. "Too Many Requests" -> "TOO_MANY_REQUESTS".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
