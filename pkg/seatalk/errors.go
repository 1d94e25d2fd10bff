package seatalk

import "fmt"

// AuthError means the authentication endpoint answered but its payload
// carried no recognizable token. Calls needing a token fail for this attempt;
// the process keeps running.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "seatalk auth: " + e.Message
}

// TransportError wraps any outbound HTTP failure against the SeaTalk API,
// including non-2xx responses.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("seatalk %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("seatalk %s: http %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
