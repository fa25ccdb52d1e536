package dto

// ErrorResponse is the uniform failure shape: success is always false.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func Error(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}

func ErrorWithDetails(msg string, details map[string]string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg, Details: details}
}

// LimitExceededResponse is the distinguished 403 returned when an
// organization's registration quota is exhausted.
type LimitExceededResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	CurrentCount int    `json:"currentCount"`
	Limit        int    `json:"limit"`
	UpgradeURL   string `json:"upgradeUrl"`
}

// ListResponse wraps a paginated slice. TotalCount is present only when the
// caller asked for $count=true and holds the filtered, unpaginated total.
type ListResponse struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Count      int         `json:"count"`
	TotalCount *int64      `json:"totalCount,omitempty"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
