package service

// SignupInput carries the validated signup payload into the orchestrator.
type SignupInput struct {
	FirstName          string
	LastName           string
	Phone              string
	Email              string
	Password           string
	CompanyName        string
	CompanyDescription string
}

// AuthResult is what signup and login hand back to clients: the identifiers
// the tokens were minted for plus the token pair itself.
type AuthResult struct {
	UserID       int64  `json:"user_id"`
	CompanyID    int64  `json:"company_id"`
	Role         string `json:"role"`
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// ProfileView is the lightweight profile returned by /auth/me.
type ProfileView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CompanyID int64  `json:"company_id"`
	Role      string `json:"role"`
}
