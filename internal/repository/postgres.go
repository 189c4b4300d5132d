package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vinshon/buildxup-backend/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository       = (*PostgresUserRepo)(nil)
	_ CompanyRepository    = (*PostgresCompanyRepo)(nil)
	_ MembershipRepository = (*PostgresMembershipRepo)(nil)
	_ AccountRepository    = (*PostgresAccountRepo)(nil)
	_ TempOTPRepository    = (*PostgresTempOTPRepo)(nil)
)

const userColumns = `id, first_name, last_name, phone, email, password_hash,
is_email_verified, is_phone_verified, is_active, access_token, refresh_token, created_at, updated_at`

// identityColumn returns the users/temp_otps column an identity is keyed by.
func identityColumn(identity domain.Identity) string {
	if identity.Kind == domain.IdentityEmail {
		return "email"
	}
	return "phone"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// PostgresUserRepo implements UserRepository on pgx.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

func (r *PostgresUserRepo) GetByIdentity(ctx context.Context, identity domain.Identity) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1 LIMIT 1`, userColumns, identityColumn(identity))
	row := r.db.QueryRow(ctx, query, identity.Value)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 LIMIT 1`, userColumns)
	row := r.db.QueryRow(ctx, query, userID)
	return scanUser(row)
}

func (r *PostgresUserRepo) UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string) error {
	const query = `UPDATE users SET access_token = $2, refresh_token = $3, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, userID, accessToken, refreshToken); err != nil {
		return fmt.Errorf("update user tokens: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// PostgresCompanyRepo implements CompanyRepository.
type PostgresCompanyRepo struct {
	db *pgxpool.Pool
}

func NewPostgresCompanyRepo(pool *pgxpool.Pool) *PostgresCompanyRepo {
	return &PostgresCompanyRepo{db: pool}
}

func (r *PostgresCompanyRepo) GetByID(ctx context.Context, companyID int64) (domain.Company, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM companies WHERE id = $1 LIMIT 1`
	var c domain.Company
	err := r.db.QueryRow(ctx, query, companyID).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Company{}, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (r *PostgresCompanyRepo) Delete(ctx context.Context, companyID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, companyID); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

// PostgresMembershipRepo implements MembershipRepository.
type PostgresMembershipRepo struct {
	db *pgxpool.Pool
}

func NewPostgresMembershipRepo(pool *pgxpool.Pool) *PostgresMembershipRepo {
	return &PostgresMembershipRepo{db: pool}
}

func (r *PostgresMembershipRepo) GetByUserID(ctx context.Context, userID int64) (domain.Membership, error) {
	const query = `SELECT id, user_id, company_id, role, created_at FROM memberships WHERE user_id = $1 LIMIT 1`
	var m domain.Membership
	err := r.db.QueryRow(ctx, query, userID).Scan(&m.ID, &m.UserID, &m.CompanyID, &m.Role, &m.CreatedAt)
	if err != nil {
		return domain.Membership{}, err
	}
	return m, nil
}

// PostgresAccountRepo creates company, user, and membership transactionally.
type PostgresAccountRepo struct {
	db *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: pool}
}

const insertCompanySQL = `INSERT INTO companies (id, name, description) VALUES ($1, $2, $3)`

const insertUserSQL = `INSERT INTO users (id, first_name, last_name, phone, email, password_hash,
is_email_verified, is_phone_verified, is_active)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)`

const insertMembershipSQL = `INSERT INTO memberships (id, user_id, company_id, role) VALUES ($1, $2, $3, $4)`

// CreateAccount writes all three rows in one transaction. A unique violation
// on the user's phone or email surfaces as ErrDuplicateIdentity.
func (r *PostgresAccountRepo) CreateAccount(ctx context.Context, company domain.Company, user domain.User, membership domain.Membership) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin signup tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertCompanySQL, company.ID, company.Name, company.Description); err != nil {
		return fmt.Errorf("insert company: %w", err)
	}

	if _, err := tx.Exec(ctx, insertUserSQL,
		user.ID,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Email,
		user.PasswordHash,
		user.IsEmailVerified,
		user.IsPhoneVerified,
		user.IsActive,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.Exec(ctx, insertMembershipSQL, membership.ID, membership.UserID, membership.CompanyID, membership.Role); err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit signup tx: %w", err)
	}
	return nil
}

// PostgresTempOTPRepo implements TempOTPRepository.
type PostgresTempOTPRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTempOTPRepo(pool *pgxpool.Pool) *PostgresTempOTPRepo {
	return &PostgresTempOTPRepo{db: pool}
}

// Upsert replaces any prior pending code for the identity. Partial unique
// indexes on phone and email back the conflict targets.
func (r *PostgresTempOTPRepo) Upsert(ctx context.Context, otp domain.TempOTP) error {
	column := identityColumn(otp.Identity())
	query := fmt.Sprintf(`INSERT INTO temp_otps (id, phone, email, code, is_verified, expires_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6)
ON CONFLICT (%s) WHERE %s IS NOT NULL
DO UPDATE SET code = EXCLUDED.code, is_verified = EXCLUDED.is_verified,
expires_at = EXCLUDED.expires_at, updated_at = now()`, column, column)

	if _, err := r.db.Exec(ctx, query, otp.ID, otp.Phone, otp.Email, otp.Code, otp.IsVerified, otp.ExpiresAt); err != nil {
		return fmt.Errorf("upsert temp otp: %w", err)
	}
	return nil
}

func (r *PostgresTempOTPRepo) GetByIdentity(ctx context.Context, identity domain.Identity) (domain.TempOTP, error) {
	query := fmt.Sprintf(`SELECT id, COALESCE(phone, ''), COALESCE(email, ''), code, is_verified, expires_at, created_at, updated_at
FROM temp_otps WHERE %s = $1 LIMIT 1`, identityColumn(identity))

	var t domain.TempOTP
	err := r.db.QueryRow(ctx, query, identity.Value).Scan(
		&t.ID, &t.Phone, &t.Email, &t.Code, &t.IsVerified, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return domain.TempOTP{}, err
	}
	return t, nil
}

func (r *PostgresTempOTPRepo) MarkVerified(ctx context.Context, id int64) error {
	const query = `UPDATE temp_otps SET is_verified = true, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mark temp otp verified: %w", err)
	}
	return nil
}

func (r *PostgresTempOTPRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM temp_otps WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete temp otp: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	var phone, email, access, refresh *string
	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&phone,
		&email,
		&u.PasswordHash,
		&u.IsEmailVerified,
		&u.IsPhoneVerified,
		&u.IsActive,
		&access,
		&refresh,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	if phone != nil {
		u.Phone = *phone
	}
	if email != nil {
		u.Email = *email
	}
	if access != nil {
		u.AccessToken = *access
	}
	if refresh != nil {
		u.RefreshToken = *refresh
	}
	return u, nil
}
