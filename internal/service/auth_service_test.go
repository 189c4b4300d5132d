package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/domain"
	"github.com/vinshon/buildxup-backend/internal/notify"
	"github.com/vinshon/buildxup-backend/internal/otp"
	"github.com/vinshon/buildxup-backend/internal/password"
	"github.com/vinshon/buildxup-backend/internal/repository"
	"github.com/vinshon/buildxup-backend/internal/service"
	"github.com/vinshon/buildxup-backend/internal/token"
)

type fixture struct {
	auth    *service.AuthService
	users   *memUsers
	store   *memOTPStore
	codec   service.TokenCodec
	decoder *token.Codec
}

func newFixture(t *testing.T, codec service.TokenCodec) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	users := newMemUsers()
	companies := newMemCompanies()
	memberships := newMemMemberships()
	accounts := &memAccounts{users: users, companies: companies, memberships: memberships}
	store := newMemOTPStore()

	realCodec := token.NewCodec("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
	if codec == nil {
		codec = realCodec
	}

	otpService := otp.NewService(store, users, passSender{}, node, time.Hour, zap.NewNop())
	auth := service.NewAuthService(users, companies, memberships, accounts, store, otpService, codec, node, zap.NewNop())

	return &fixture{auth: auth, users: users, store: store, codec: codec, decoder: realCodec}
}

func (f *fixture) verifiedOTP(t *testing.T, identity domain.Identity) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.auth.RequestTempOTP(ctx, identity))
	record, err := f.store.GetByIdentity(ctx, identity)
	require.NoError(t, err)
	require.NoError(t, f.auth.VerifyOTP(ctx, identity, record.Code))
}

func signupInput() service.SignupInput {
	return service.SignupInput{
		FirstName:   "Asha",
		LastName:    "Rao",
		Phone:       "+919900112233",
		Email:       "asha@example.com",
		Password:    "build-it-123",
		CompanyName: "Rao Constructions",
	}
}

func TestSignupFullFlow(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)

	result, err := f.auth.Signup(ctx, signupInput())
	require.NoError(t, err)
	require.NotZero(t, result.UserID)
	require.NotZero(t, result.CompanyID)
	require.Equal(t, domain.RoleAdmin, result.Role)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	// Claims carry the committed identifiers, not placeholders.
	claims, err := f.decoder.VerifyAccess(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, result.UserID, claims.UserID)
	require.Equal(t, result.CompanyID, claims.CompanyID)
	require.Equal(t, domain.RoleAdmin, claims.Role)

	// The verified code was consumed.
	_, err = f.store.GetByIdentity(ctx, identity)
	require.ErrorIs(t, err, pgx.ErrNoRows)

	// Tokens were persisted on the user row.
	user, err := f.users.GetByID(ctx, result.UserID)
	require.NoError(t, err)
	require.Equal(t, result.AccessToken, user.AccessToken)
	require.Equal(t, result.RefreshToken, user.RefreshToken)
	require.True(t, user.IsPhoneVerified)
	require.True(t, user.IsActive)
}

func TestSignupRequiresVerifiedOTP(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// No OTP at all.
	_, err := f.auth.Signup(ctx, signupInput())
	requireAuthError(t, err, 403, "Unverified user")

	// Pending but never verified.
	require.NoError(t, f.auth.RequestTempOTP(ctx, domain.PhoneIdentity("+919900112233")))
	_, err = f.auth.Signup(ctx, signupInput())
	requireAuthError(t, err, 403, "Unverified user")
}

func TestSignupConsumedOTPCannotBeReused(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)
	_, err := f.auth.Signup(ctx, signupInput())
	require.NoError(t, err)

	_, err = f.auth.Signup(ctx, signupInput())
	requireAuthError(t, err, 409, "User already exists")
}

func TestSignupRejectsExistingUser(t *testing.T) {
	f := newFixture(t, nil)
	identity := domain.PhoneIdentity("+919900112233")
	f.users.seed(domain.User{ID: 99, Phone: identity.Value, IsActive: true})

	_, err := f.auth.Signup(context.Background(), signupInput())
	requireAuthError(t, err, 409, "User already exists")

	err = f.auth.RequestTempOTP(context.Background(), identity)
	requireAuthError(t, err, 409, "User already exists")
}

func TestSignupCompensatesWhenTokenMintFails(t *testing.T) {
	f := newFixture(t, failingCodec{})
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)

	_, err := f.auth.Signup(ctx, signupInput())
	require.Error(t, err)

	// The half-created account was rolled back, so the identity is free for
	// another attempt.
	_, err = f.users.GetByIdentity(ctx, identity)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestSignupMissingSecretIsConfigurationFault(t *testing.T) {
	f := newFixture(t, token.NewCodec("", "", time.Hour, time.Hour))
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)

	_, err := f.auth.Signup(ctx, signupInput())
	requireAuthError(t, err, 500, "Internal server error")

	var authErr *service.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, service.KindConfiguration, authErr.Kind)

	// The fault still triggered compensation.
	_, err = f.users.GetByIdentity(ctx, identity)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestLoginUnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)
	_, err := f.auth.Signup(ctx, signupInput())
	require.NoError(t, err)

	_, unknownErr := f.auth.Login(ctx, domain.PhoneIdentity("+918800000000"), "build-it-123")
	_, wrongPassErr := f.auth.Login(ctx, identity, "not-the-password")

	requireAuthError(t, unknownErr, 401, "Invalid credentials provided")
	requireAuthError(t, wrongPassErr, 401, "Invalid credentials provided")
	require.Equal(t, unknownErr, wrongPassErr)
}

func TestLoginMintsFreshTokens(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)
	signup, err := f.auth.Signup(ctx, signupInput())
	require.NoError(t, err)

	login, err := f.auth.Login(ctx, identity, "build-it-123")
	require.NoError(t, err)
	require.Equal(t, signup.UserID, login.UserID)
	require.Equal(t, signup.CompanyID, login.CompanyID)
	require.NotEmpty(t, login.AccessToken)

	claims, err := f.decoder.VerifyAccess(login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, login.UserID, claims.UserID)
	require.Equal(t, login.CompanyID, claims.CompanyID)

	user, err := f.users.GetByID(ctx, login.UserID)
	require.NoError(t, err)
	require.Equal(t, login.AccessToken, user.AccessToken)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	identity := domain.PhoneIdentity("+919900112233")

	f.verifiedOTP(t, identity)
	result, err := f.auth.Signup(ctx, signupInput())
	require.NoError(t, err)

	f.users.deactivate(result.UserID)

	_, err = f.auth.Login(ctx, identity, "build-it-123")
	requireAuthError(t, err, 403, "Account not verified")
}

func TestLoginWithoutMembershipIsUnauthorized(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	hashed := mustHash(t, "build-it-123")
	f.users.seed(domain.User{ID: 55, Phone: "+917700000000", PasswordHash: hashed, IsActive: true})

	_, err := f.auth.Login(ctx, domain.PhoneIdentity("+917700000000"), "build-it-123")
	requireAuthError(t, err, 401, "Unauthorized access")
}

func requireAuthError(t *testing.T, err error, status int, message string) {
	t.Helper()
	var authErr *service.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, status, authErr.Status)
	require.Equal(t, message, authErr.Message)
}

type passSender struct{}

func (passSender) SendCode(context.Context, notify.Channel, string, string) bool { return true }

type failingCodec struct{}

func (failingCodec) IssueAccess(token.Claims) (string, error) {
	return "", errors.New("signer unavailable")
}

func (failingCodec) IssueRefresh(token.Claims) (string, error) {
	return "", errors.New("signer unavailable")
}

func (failingCodec) VerifyAccess(string) (token.Claims, error) {
	return token.Claims{}, token.ErrInvalidToken
}

type memUsers struct {
	mu   sync.Mutex
	byID map[int64]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]domain.User)}
}

func (m *memUsers) seed(user domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user
}

func (m *memUsers) deactivate(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user := m.byID[userID]
	user.IsActive = false
	m.byID[userID] = user
}

func (m *memUsers) GetByIdentity(_ context.Context, identity domain.Identity) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.byID {
		if identity.Kind == domain.IdentityPhone && user.Phone == identity.Value {
			return user, nil
		}
		if identity.Kind == domain.IdentityEmail && user.Email == identity.Value {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, userID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memUsers) UpdateTokens(_ context.Context, userID int64, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.byID[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AccessToken = accessToken
	user.RefreshToken = refreshToken
	m.byID[userID] = user
	return nil
}

func (m *memUsers) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, userID)
	return nil
}

type memCompanies struct {
	mu   sync.Mutex
	byID map[int64]domain.Company
}

func newMemCompanies() *memCompanies {
	return &memCompanies{byID: make(map[int64]domain.Company)}
}

func (m *memCompanies) GetByID(_ context.Context, companyID int64) (domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	company, ok := m.byID[companyID]
	if !ok {
		return domain.Company{}, pgx.ErrNoRows
	}
	return company, nil
}

func (m *memCompanies) Delete(_ context.Context, companyID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, companyID)
	return nil
}

type memMemberships struct {
	mu       sync.Mutex
	byUserID map[int64]domain.Membership
}

func newMemMemberships() *memMemberships {
	return &memMemberships{byUserID: make(map[int64]domain.Membership)}
}

func (m *memMemberships) GetByUserID(_ context.Context, userID int64) (domain.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	membership, ok := m.byUserID[userID]
	if !ok {
		return domain.Membership{}, pgx.ErrNoRows
	}
	return membership, nil
}

// memAccounts mimics the transactional create: either every row lands or none.
type memAccounts struct {
	users       *memUsers
	companies   *memCompanies
	memberships *memMemberships
}

func (m *memAccounts) CreateAccount(ctx context.Context, company domain.Company, user domain.User, membership domain.Membership) error {
	identity, err := domain.NewIdentity(user.Phone, user.Email)
	if err != nil {
		return err
	}
	if _, err := m.users.GetByIdentity(ctx, identity); err == nil {
		return repository.ErrDuplicateIdentity
	}

	m.companies.mu.Lock()
	m.companies.byID[company.ID] = company
	m.companies.mu.Unlock()

	m.users.seed(user)

	m.memberships.mu.Lock()
	m.memberships.byUserID[membership.UserID] = membership
	m.memberships.mu.Unlock()
	return nil
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()
	hashed, err := password.Hash(plain)
	require.NoError(t, err)
	return hashed
}

type memOTPStore struct {
	mu      sync.Mutex
	records map[string]domain.TempOTP
}

func newMemOTPStore() *memOTPStore {
	return &memOTPStore{records: make(map[string]domain.TempOTP)}
}

func (m *memOTPStore) Upsert(_ context.Context, record domain.TempOTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Identity().String()] = record
	return nil
}

func (m *memOTPStore) GetByIdentity(_ context.Context, identity domain.Identity) (domain.TempOTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[identity.String()]
	if !ok {
		return domain.TempOTP{}, pgx.ErrNoRows
	}
	return record, nil
}

func (m *memOTPStore) MarkVerified(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, record := range m.records {
		if record.ID == id {
			record.IsVerified = true
			m.records[key] = record
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *memOTPStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, record := range m.records {
		if record.ID == id {
			delete(m.records, key)
			return nil
		}
	}
	return nil
}
