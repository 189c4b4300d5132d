package repository

import (
	"context"
	"errors"

	"github.com/vinshon/buildxup-backend/internal/domain"
)

// ErrDuplicateIdentity maps the unique constraint on phone/email.
var ErrDuplicateIdentity = errors.New("identity already registered")

// UserRepository exposes persistence for users keyed by identity.
type UserRepository interface {
	GetByIdentity(ctx context.Context, identity domain.Identity) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error
	Delete(ctx context.Context, userID int64) error
}

// CompanyRepository exposes company persistence. Creation happens only inside
// the signup transaction; Delete exists for compensating rollbacks.
type CompanyRepository interface {
	GetByID(ctx context.Context, companyID int64) (domain.Company, error)
	Delete(ctx context.Context, companyID int64) error
}

// MembershipRepository resolves the role a user holds within a company.
type MembershipRepository interface {
	GetByUserID(ctx context.Context, userID int64) (domain.Membership, error)
}

// AccountRepository creates the company, user, and admin membership as one
// all-or-nothing write.
type AccountRepository interface {
	CreateAccount(ctx context.Context, company domain.Company, user domain.User, membership domain.Membership) error
}

// TempOTPRepository manages the one-live-row-per-identity code store.
type TempOTPRepository interface {
	Upsert(ctx context.Context, otp domain.TempOTP) error
	GetByIdentity(ctx context.Context, identity domain.Identity) (domain.TempOTP, error)
	MarkVerified(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
