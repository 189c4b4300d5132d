package domain

import "time"

// TempOTP is a short-lived verification code not yet bound to a created user.
// Exactly one live row exists per identity; issuance upserts, signup deletes.
type TempOTP struct {
	ID         int64
	Phone      string
	Email      string
	Code       string
	IsVerified bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity reconstructs the lookup key the row was stored under.
func (t TempOTP) Identity() Identity {
	if t.Phone != "" {
		return PhoneIdentity(t.Phone)
	}
	return EmailIdentity(t.Email)
}

// Expired reports whether the code is past its expiry at the given instant.
func (t TempOTP) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
