package dto

// Credentials authorize password-gated operations: the original system
// re-authenticates sensitive account changes with username and password
// rather than a session token.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Zip      string `json:"zip"`
	UserType string `json:"user_type"`

	// Client
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CellPhone string `json:"cell_phone"`
	Paying    bool   `json:"paying"`

	// Business
	Name         string `json:"name"`
	WorkPhone    string `json:"work_phone"`
	Instructions string `json:"instructions"`
}

type LoginResponse struct {
	SessionToken string `json:"session_token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserInfoResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Zip      string `json:"zip"`
	UserType string `json:"user_type"`

	// Client
	CID       int    `json:"cid,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	CellPhone string `json:"cell_phone,omitempty"`

	// Business
	BID          int    `json:"bid,omitempty"`
	Name         string `json:"name,omitempty"`
	WorkPhone    string `json:"work_phone,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type UserTypeResponse struct {
	UserType string `json:"user_type"`
}

type SetInfoRequest struct {
	Credentials

	NewUsername string `json:"new_username"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Zip         string `json:"zip"`

	// Client
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	CellPhone string `json:"cell_phone"`

	// Business
	Name         string `json:"name"`
	WorkPhone    string `json:"work_phone"`
	Instructions string `json:"instructions"`
}

type SetPasswordRequest struct {
	Credentials

	NewPassword string `json:"new_password"`
}
