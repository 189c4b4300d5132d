package token

import (
	"errors"
	"fmt"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

// Codec signs and verifies bearer tokens with independent access and refresh
// secrets. Secrets are checked for presence before any cryptographic work so
// a missing secret surfaces as a configuration fault, not a verify fault.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// ErrSecretMissing reports an unset signing secret.
var ErrSecretMissing = errors.New("token secret is not configured")

// ErrInvalidToken covers malformed, expired, and badly signed tokens.
// Callers must not be able to tell these apart.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the authorization payload embedded in every issued token.
type Claims struct {
	UserID    int64  `json:"user_id"`
	CompanyID int64  `json:"company_id"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// NewCodec constructs a codec from the configured secrets and expirations.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// IssueAccess signs the claims with the access secret and access expiry.
func (c *Codec) IssueAccess(claims Claims) (string, error) {
	return sign(c.accessSecret, claims, c.accessTTL)
}

// IssueRefresh signs the claims with the refresh secret and refresh expiry.
func (c *Codec) IssueRefresh(claims Claims) (string, error) {
	return sign(c.refreshSecret, claims, c.refreshTTL)
}

// VerifyAccess validates signature and expiry against the access secret and
// returns the decoded claims. All failure modes collapse to ErrInvalidToken.
func (c *Codec) VerifyAccess(raw string) (Claims, error) {
	if len(c.accessSecret) == 0 {
		return Claims{}, ErrSecretMissing
	}

	parsed, err := gojwt.ParseSigned(raw, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	var std gojwt.Claims
	var custom Claims
	if err := parsed.Claims(c.accessSecret, &std, &custom); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if err := std.Validate(gojwt.Expected{Time: time.Now().UTC()}); err != nil {
		return Claims{}, ErrInvalidToken
	}

	return custom, nil
}

func sign(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrSecretMissing
	}

	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := time.Now().UTC()
	std := gojwt.Claims{
		Subject:  fmt.Sprintf("%d", claims.UserID),
		IssuedAt: gojwt.NewNumericDate(now),
		Expiry:   gojwt.NewNumericDate(now.Add(ttl)),
	}

	raw, err := gojwt.Signed(signer).Claims(std).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}
	return raw, nil
}
