package objects

// Error is the wire error payload.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every failing endpoint returns.
type ErrorResponse struct {
	Error Error `json:"error"`
}
