package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docverity/docverity/internal/core/domain"
)

type VerificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *VerificationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082301)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS verifications (
	id TEXT PRIMARY KEY,
	image_url TEXT NOT NULL DEFAULT '',
	storage_key TEXT NOT NULL DEFAULT '',
	claim_full_name TEXT NOT NULL DEFAULT '',
	claim_id_number TEXT NOT NULL DEFAULT '',
	claim_email TEXT NOT NULL DEFAULT '',
	claim_phone TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	result JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verifications_status ON verifications(status);
CREATE INDEX IF NOT EXISTS idx_verifications_created_at ON verifications(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *VerificationRepository) Create(ctx context.Context, v *domain.Verification) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO verifications (
	id, image_url, storage_key, claim_full_name, claim_id_number, claim_email, claim_phone, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		v.ID, v.ImageURL, v.StorageKey, v.Claim.FullName, v.Claim.IDNumber, v.Claim.Email, v.Claim.Phone,
		string(v.Status), v.Error, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (r *VerificationRepository) GetByID(ctx context.Context, id string) (*domain.Verification, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, image_url, storage_key, claim_full_name, claim_id_number, claim_email, claim_phone, status, result, error_message, created_at, updated_at
FROM verifications
WHERE id = $1
`, id)

	var v domain.Verification
	var status string
	var resultRaw []byte

	err := row.Scan(
		&v.ID, &v.ImageURL, &v.StorageKey, &v.Claim.FullName, &v.Claim.IDNumber, &v.Claim.Email, &v.Claim.Phone,
		&status, &resultRaw, &v.Error, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrVerificationNotFound, "get verification", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}

	if len(resultRaw) > 0 {
		var result domain.IdentificationResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		v.Result = &result
	}
	v.Status = domain.VerificationStatus(status)
	return &v, nil
}

func (r *VerificationRepository) UpdateStatus(ctx context.Context, id string, status domain.VerificationStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE verifications
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update verification status: %w", err)
	}
	return requireRow(res, id)
}

func (r *VerificationRepository) SaveResult(ctx context.Context, id string, result domain.IdentificationResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE verifications
SET result = $2, updated_at = $3
WHERE id = $1
`, id, resultJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrVerificationNotFound, "update verification", fmt.Errorf("id %s", id))
	}
	return nil
}
