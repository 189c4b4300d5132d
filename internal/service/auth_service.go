package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/domain"
	"github.com/vinshon/buildxup-backend/internal/otp"
	"github.com/vinshon/buildxup-backend/internal/password"
	"github.com/vinshon/buildxup-backend/internal/repository"
	"github.com/vinshon/buildxup-backend/internal/token"
)

// TokenCodec is the slice of the token codec the orchestrator needs.
type TokenCodec interface {
	IssueAccess(claims token.Claims) (string, error)
	IssueRefresh(claims token.Claims) (string, error)
	VerifyAccess(raw string) (token.Claims, error)
}

// AuthService composes OTP issuance, credential checks, and token minting
// into the signup, login, and temp-OTP workflows.
type AuthService struct {
	users       repository.UserRepository
	companies   repository.CompanyRepository
	memberships repository.MembershipRepository
	accounts    repository.AccountRepository
	otps        repository.TempOTPRepository
	otp         *otp.Service
	codec       TokenCodec
	node        *snowflake.Node
	logger      *zap.Logger
	tracer      trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(
	users repository.UserRepository,
	companies repository.CompanyRepository,
	memberships repository.MembershipRepository,
	accounts repository.AccountRepository,
	otps repository.TempOTPRepository,
	otpService *otp.Service,
	codec TokenCodec,
	node *snowflake.Node,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthService{
		users:       users,
		companies:   companies,
		memberships: memberships,
		accounts:    accounts,
		otps:        otps,
		otp:         otpService,
		codec:       codec,
		node:        node,
		logger:      logger,
		tracer:      otel.Tracer("github.com/vinshon/buildxup-backend/internal/service"),
	}
}

// RequestTempOTP issues a signup code for an identity that has no user yet.
func (s *AuthService) RequestTempOTP(ctx context.Context, identity domain.Identity) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.RequestTempOTP")
	defer span.End()

	err := s.otp.Issue(ctx, identity)
	switch {
	case err == nil:
		s.audit("temp_otp.issued", "identity", identity.String())
		return nil
	case errors.Is(err, otp.ErrAlreadyRegistered):
		return errUserAlreadyExists
	case errors.Is(err, otp.ErrDeliveryFailed):
		return errOTPSendFailed
	case errors.Is(err, domain.ErrNoIdentity):
		return NewValidationError(err.Error())
	default:
		span.RecordError(err)
		return fmt.Errorf("issue temp otp: %w", err)
	}
}

// VerifyOTP flips the pending code to verified. No tokens are issued here;
// signup and login are the only minting paths.
func (s *AuthService) VerifyOTP(ctx context.Context, identity domain.Identity, code string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyOTP")
	defer span.End()

	err := s.otp.Verify(ctx, identity, code)
	switch {
	case err == nil:
		s.audit("temp_otp.verified", "identity", identity.String())
		return nil
	case errors.Is(err, otp.ErrInvalidCode):
		return errInvalidOTP
	case errors.Is(err, domain.ErrNoIdentity):
		return NewValidationError(err.Error())
	default:
		span.RecordError(err)
		return fmt.Errorf("verify otp: %w", err)
	}
}

// Signup creates the company, its first admin user, and the membership in one
// transaction, then mints tokens against the committed identifiers. The
// verified temp OTP is the entry ticket and is consumed on success.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Signup")
	defer span.End()

	identity, err := domain.NewIdentity(input.Phone, input.Email)
	if err != nil {
		return AuthResult{}, NewValidationError(err.Error())
	}

	if _, err := s.users.GetByIdentity(ctx, identity); err == nil {
		return AuthResult{}, errUserAlreadyExists
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("check existing user: %w", err)
	}

	record, err := s.otps.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, errUnverifiedUser
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("load temp otp: %w", err)
	}
	if !record.IsVerified {
		return AuthResult{}, errUnverifiedUser
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	company := domain.Company{
		ID:          s.node.Generate().Int64(),
		Name:        input.CompanyName,
		Description: input.CompanyDescription,
	}
	user := domain.User{
		ID:              s.node.Generate().Int64(),
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Phone:           identityField(identity, domain.IdentityPhone, input.Phone),
		Email:           identityField(identity, domain.IdentityEmail, input.Email),
		PasswordHash:    hashed,
		IsEmailVerified: identity.Kind == domain.IdentityEmail,
		IsPhoneVerified: identity.Kind == domain.IdentityPhone,
		IsActive:        true,
	}
	membership := domain.Membership{
		ID:        s.node.Generate().Int64(),
		UserID:    user.ID,
		CompanyID: company.ID,
		Role:      domain.RoleAdmin,
	}

	if err := s.accounts.CreateAccount(ctx, company, user, membership); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return AuthResult{}, errUserAlreadyExists
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("create account: %w", err)
	}

	// Tokens carry the committed identifiers, so minting can only happen
	// after the transaction. A minting failure rolls the account back with
	// compensating deletes; those are best effort and never mask the fault.
	result, err := s.issueAndPersistTokens(ctx, user, membership.CompanyID, membership.Role)
	if err != nil {
		span.RecordError(err)
		s.compensateSignup(ctx, user.ID, company.ID)
		return AuthResult{}, fmt.Errorf("issue signup tokens: %w", err)
	}

	if err := s.otps.Delete(ctx, record.ID); err != nil {
		s.logger.Warn("failed to delete consumed temp otp",
			zap.Int64("otp_id", record.ID),
			zap.Error(err),
		)
	}

	s.audit("signup.success", "user_id", user.ID, "company_id", company.ID)
	return result, nil
}

// Login checks credentials and mints a fresh token pair. Unknown identity and
// wrong password resolve to the same fault.
func (s *AuthService) Login(ctx context.Context, identity domain.Identity, plainPassword string) (AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, errInvalidCredentials
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	ok, err := password.Verify(plainPassword, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, errInvalidCredentials
	}

	if !user.IsActive {
		return AuthResult{}, errAccountNotVerified
	}

	membership, err := s.memberships.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AuthResult{}, errUnauthorized
		}
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("load membership: %w", err)
	}

	result, err := s.issueAndPersistTokens(ctx, user, membership.CompanyID, membership.Role)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, fmt.Errorf("issue login tokens: %w", err)
	}

	s.audit("login.success", "user_id", user.ID, "company_id", membership.CompanyID)
	return result, nil
}

// VerifyAccessToken proxies to the codec for the authorization middleware.
func (s *AuthService) VerifyAccessToken(raw string) (token.Claims, error) {
	return s.codec.VerifyAccess(raw)
}

// Profile loads the caller's profile for /auth/me.
func (s *AuthService) Profile(ctx context.Context, userID int64) (ProfileView, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Profile")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return ProfileView{}, fmt.Errorf("load user: %w", err)
	}
	membership, err := s.memberships.GetByUserID(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		return ProfileView{}, fmt.Errorf("load membership: %w", err)
	}

	return ProfileView{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
		CompanyID: membership.CompanyID,
		Role:      membership.Role,
	}, nil
}

func (s *AuthService) issueAndPersistTokens(ctx context.Context, user domain.User, companyID int64, role string) (AuthResult, error) {
	claims := token.Claims{
		UserID:    user.ID,
		CompanyID: companyID,
		Role:      role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Phone:     user.Phone,
	}

	access, err := s.codec.IssueAccess(claims)
	if err != nil {
		if errors.Is(err, token.ErrSecretMissing) {
			s.logger.Error("token secret missing", zap.Error(err))
			return AuthResult{}, errConfiguration
		}
		return AuthResult{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefresh(claims)
	if err != nil {
		if errors.Is(err, token.ErrSecretMissing) {
			s.logger.Error("token secret missing", zap.Error(err))
			return AuthResult{}, errConfiguration
		}
		return AuthResult{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.users.UpdateTokens(ctx, user.ID, access, refresh); err != nil {
		return AuthResult{}, fmt.Errorf("persist tokens: %w", err)
	}

	return AuthResult{
		UserID:       user.ID,
		CompanyID:    companyID,
		Role:         role,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// compensateSignup undoes a committed account after a post-commit failure.
// Each delete is logged on failure and swallowed; the caller keeps the
// original fault.
func (s *AuthService) compensateSignup(ctx context.Context, userID, companyID int64) {
	if err := s.users.Delete(ctx, userID); err != nil {
		s.logger.Error("signup compensation: delete user failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
	if err := s.companies.Delete(ctx, companyID); err != nil {
		s.logger.Error("signup compensation: delete company failed",
			zap.Int64("company_id", companyID),
			zap.Error(err),
		)
	}
}

func (s *AuthService) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.logger.Info("audit", fields...)
}

func identityField(identity domain.Identity, kind domain.IdentityKind, raw string) string {
	if identity.Kind == kind {
		return identity.Value
	}
	if kind == domain.IdentityPhone {
		return domain.PhoneIdentity(raw).Value
	}
	return domain.EmailIdentity(raw).Value
}
