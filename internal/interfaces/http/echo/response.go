package echo

const (
	statusSuccess = "success"
	statusError   = "error"
)

type apiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	JobID   string `json:"job_id,omitempty"`
	Data    any    `json:"data,omitempty"`
	Results any    `json:"results,omitempty"`
	Details string `json:"details,omitempty"`
}

func errorResponse(message string) apiResponse {
	return apiResponse{Status: statusError, Message: message}
}
