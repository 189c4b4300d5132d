package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vinshon/buildxup-backend/internal/domain"
	"github.com/vinshon/buildxup-backend/internal/notify"
	"github.com/vinshon/buildxup-backend/internal/repository"
)

// Per-identity lifecycle: none -> pending -> verified -> consumed. Issue moves
// none/pending to pending, Verify moves pending to verified, and the signup
// flow consumes the row by deleting it.

// ErrAlreadyRegistered refuses issuance for an identity that already has a user.
var ErrAlreadyRegistered = errors.New("identity already registered")

// ErrInvalidCode covers a missing row, a wrong code, and an expired code.
// Callers get one error kind for all three so codes cannot be enumerated.
var ErrInvalidCode = errors.New("invalid otp")

// ErrDeliveryFailed reports that the code was stored but could not be sent.
var ErrDeliveryFailed = errors.New("otp delivery failed")

// Service issues and verifies one-time codes.
type Service struct {
	store  repository.TempOTPRepository
	users  repository.UserRepository
	sender notify.Sender
	node   *snowflake.Node
	ttl    time.Duration
	logger *zap.Logger
	tracer trace.Tracer
}

// NewService wires dependencies.
func NewService(store repository.TempOTPRepository, users repository.UserRepository, sender notify.Sender, node *snowflake.Node, ttl time.Duration, logger *zap.Logger) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Service{
		store:  store,
		users:  users,
		sender: sender,
		node:   node,
		ttl:    ttl,
		logger: logger,
		tracer: otel.Tracer("github.com/vinshon/buildxup-backend/internal/otp"),
	}
}

// Issue generates a fresh code for the identity, replacing any pending one,
// and dispatches it. The record persists even when dispatch fails so a retry
// can re-send; that failure is still reported distinctly.
func (s *Service) Issue(ctx context.Context, identity domain.Identity) error {
	ctx, span := s.tracer.Start(ctx, "otp.Issue")
	defer span.End()

	if identity.IsZero() {
		return domain.ErrNoIdentity
	}

	if _, err := s.users.GetByIdentity(ctx, identity); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return fmt.Errorf("check existing user: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("generate otp: %w", err)
	}

	record := domain.TempOTP{
		ID:         s.node.Generate().Int64(),
		Code:       code,
		IsVerified: false,
		ExpiresAt:  time.Now().Add(s.ttl),
	}
	switch identity.Kind {
	case domain.IdentityPhone:
		record.Phone = identity.Value
	default:
		record.Email = identity.Value
	}

	if err := s.store.Upsert(ctx, record); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store otp: %w", err)
	}

	if ok := s.sender.SendCode(ctx, notify.ChannelFor(identity), identity.Value, code); !ok {
		s.logger.Warn("otp dispatch failed, code retained for retry",
			zap.String("identity", identity.String()),
		)
		return ErrDeliveryFailed
	}

	return nil
}

// Verify checks the pending code for the identity and marks it verified on
// match. The record stays in place; signup deletes it once consumed.
func (s *Service) Verify(ctx context.Context, identity domain.Identity, code string) error {
	ctx, span := s.tracer.Start(ctx, "otp.Verify")
	defer span.End()

	if identity.IsZero() {
		return domain.ErrNoIdentity
	}

	record, err := s.store.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidCode
		}
		span.RecordError(err)
		return fmt.Errorf("load otp: %w", err)
	}

	if record.Expired(time.Now()) || record.Code != code {
		return ErrInvalidCode
	}

	if err := s.store.MarkVerified(ctx, record.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark otp verified: %w", err)
	}

	return nil
}

// generateCode draws a uniform 6-digit numeric code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
