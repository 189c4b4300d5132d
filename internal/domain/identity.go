package domain

import (
	"errors"
	"strings"
)

// IdentityKind discriminates the natural key a client authenticates with.
type IdentityKind string

const (
	IdentityPhone IdentityKind = "phone"
	IdentityEmail IdentityKind = "email"
)

// ErrNoIdentity is returned when neither phone nor email is supplied.
var ErrNoIdentity = errors.New("phone or email is required")

// Identity is the phone-or-email key used for OTP and login lookups.
// The zero value is invalid; build one through the constructors.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// PhoneIdentity normalizes a phone number into an Identity.
func PhoneIdentity(phone string) Identity {
	return Identity{Kind: IdentityPhone, Value: strings.TrimSpace(phone)}
}

// EmailIdentity normalizes an email address into an Identity.
func EmailIdentity(email string) Identity {
	return Identity{Kind: IdentityEmail, Value: strings.ToLower(strings.TrimSpace(email))}
}

// NewIdentity picks the identity key the way the API contracts do: phone wins
// when both are present, and an empty pair is rejected.
func NewIdentity(phone, email string) (Identity, error) {
	if strings.TrimSpace(phone) != "" {
		return PhoneIdentity(phone), nil
	}
	if strings.TrimSpace(email) != "" {
		return EmailIdentity(email), nil
	}
	return Identity{}, ErrNoIdentity
}

// IsZero reports whether the identity carries no value.
func (i Identity) IsZero() bool {
	return i.Value == ""
}

func (i Identity) String() string {
	return string(i.Kind) + ":" + i.Value
}
