package models

// User is the account returned alongside a login or registration.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both auth endpoints. Token may carry a "Bearer " prefix.
type AuthResponse struct {
	Token   string `json:"token"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the generic body for deletes and error responses.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
