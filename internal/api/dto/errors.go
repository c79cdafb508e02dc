package dto

// APIError is the body of every non-2xx response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// RunID echoes the requested run on run lookups.
	RunID string `json:"run_id,omitempty"`
}

// Error codes returned by the run history API
const (
	ErrCodeRunNotFound      = "run_not_found"
	ErrCodeMissingRunID     = "missing_run_id"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// RunNotFound reports a run ID with no stored run.
func RunNotFound(id string) APIError {
	return APIError{Code: ErrCodeRunNotFound, Message: "no run with this ID has been recorded", RunID: id}
}

// MissingRunID reports a run route hit without an ID.
func MissingRunID() APIError {
	return APIError{Code: ErrCodeMissingRunID, Message: "run ID is required"}
}

// StoreUnavailable reports a failed read from the run store. what names the
// records being read, e.g. "runs" or "snapshots".
func StoreUnavailable(what string) APIError {
	return APIError{Code: ErrCodeStoreUnavailable, Message: "could not read " + what + " from the run store"}
}
