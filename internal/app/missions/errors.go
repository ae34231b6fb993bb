package missions

// Error is an application-layer error that can be mapped to an HTTP response.
// Every validation failure carries enough detail for the operator to correct
// and resubmit without inspecting logs.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
