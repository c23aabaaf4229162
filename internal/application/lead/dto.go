package lead

// Result status values
const (
	StatusFailed   = 0
	StatusAccepted = 1
)

// SubmitRequest is one form submission together with the request context
// the pipeline depends on
type SubmitRequest struct {
	FormData map[string]string
	Settings map[string]string
	// Host is the server hostname used as the SKU map key
	Host string
	// Referrer is the page the form was submitted from
	Referrer string
}

// Result is returned to the form layer. Failures carry Error, acceptance carries Message.
type Result struct {
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Accepted reports whether the lead passed local validation
func (r Result) Accepted() bool {
	return r.Status == StatusAccepted
}

func failed(message string) Result {
	return Result{Status: StatusFailed, Error: message}
}
