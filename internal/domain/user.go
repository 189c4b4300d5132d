package domain

import "time"

// RoleAdmin is the membership role granted to a company's first user.
const RoleAdmin = "admin"

// User is an authenticated identity. The token columns cache the most
// recently issued pair; verification never reads them back.
type User struct {
	ID              int64
	FirstName       string
	LastName        string
	Phone           string
	Email           string
	PasswordHash    string
	IsEmailVerified bool
	IsPhoneVerified bool
	IsActive        bool
	AccessToken     string
	RefreshToken    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Company is the tenant every project-scoped record hangs off.
type Company struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership grants a User a role within a Company. A user without any
// membership is unauthorized for company-scoped operations.
type Membership struct {
	ID        int64
	UserID    int64
	CompanyID int64
	Role      string
	CreatedAt time.Time
}
