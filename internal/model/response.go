package model

// AuthResponse is the wire envelope every /api/Auth endpoint returns.
type AuthResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Token   string   `json:"token,omitempty"`
	User    *UserDTO `json:"user,omitempty"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// AuditPage wraps a page of audit entries for the admin listing endpoint.
type AuditPage struct {
	Success bool         `json:"success"`
	Entries []AuditEntry `json:"entries"`
	Meta    Meta         `json:"meta"`
}
