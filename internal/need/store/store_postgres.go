package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodbridge/internal/need/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// PostgresStore persists needs in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const needColumns = `id, recipient_id, food_type, quantity, dropoff_location_id, contact_phone, notes, matched_donation_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, need *models.Need) error {
	query := `
		INSERT INTO needs (` + needColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var matchedID any
	if need.MatchedDonationID != nil {
		matchedID = need.MatchedDonationID.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		need.ID.String(),
		need.RecipientID.String(),
		need.FoodType,
		need.Quantity,
		need.DropoffLocationID.String(),
		need.ContactPhone,
		need.Notes,
		matchedID,
		need.CreatedAt,
		need.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create need: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, needID id.NeedID) (*models.Need, error) {
	query := `SELECT ` + needColumns + ` FROM needs WHERE id = $1`
	need, err := scanNeed(s.db.QueryRowContext(ctx, query, needID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find need: %w", err)
	}
	return need, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Need, error) {
	query := `
		SELECT ` + needColumns + `
		FROM needs
		WHERE recipient_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, recipientID.String(), page.Limit, page.Offset)
}

func (s *PostgresStore) ListOpenByFoodType(ctx context.Context, foodType string, page id.Page) ([]*models.Need, error) {
	query := `
		SELECT ` + needColumns + `
		FROM needs
		WHERE matched_donation_id IS NULL AND lower(food_type) = lower($1)
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, foodType, page.Limit, page.Offset)
}

func (s *PostgresStore) UpdateIfOpen(ctx context.Context, needID id.NeedID, recipientID id.UserID, params UpdateParams, now time.Time) (*models.Need, error) {
	query := `
		UPDATE needs
		SET food_type = $3, quantity = $4, dropoff_location_id = $5, contact_phone = $6, notes = $7, updated_at = $8
		WHERE id = $1 AND recipient_id = $2 AND matched_donation_id IS NULL
		RETURNING ` + needColumns
	need, err := scanNeed(s.db.QueryRowContext(ctx, query,
		needID.String(), recipientID.String(),
		params.FoodType, params.Quantity, params.DropoffLocationID.String(),
		params.ContactPhone, params.Notes, now))
	if err == nil {
		return need, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update need: %w", err)
	}
	return nil, s.classifyOpenFailure(ctx, needID, recipientID)
}

func (s *PostgresStore) DeleteIfOpen(ctx context.Context, needID id.NeedID, recipientID id.UserID) error {
	query := `DELETE FROM needs WHERE id = $1 AND recipient_id = $2 AND matched_donation_id IS NULL`
	result, err := s.db.ExecContext(ctx, query, needID.String(), recipientID.String())
	if err != nil {
		return fmt.Errorf("delete need: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete need rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	return s.classifyOpenFailure(ctx, needID, recipientID)
}

func (s *PostgresStore) ConsumeIfOpen(ctx context.Context, needID id.NeedID, donationID id.DonationID, now time.Time) (*models.Need, error) {
	return ConsumeIfOpenTx(ctx, s.db, needID, donationID, now)
}

func (s *PostgresStore) Release(ctx context.Context, needID id.NeedID, now time.Time) error {
	query := `UPDATE needs SET matched_donation_id = NULL, updated_at = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, needID.String(), now)
	if err != nil {
		return fmt.Errorf("release need: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("release need rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// querier lets the consumption run against the pool or inside a transaction;
// the matching commit reuses it under its own sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConsumeIfOpenTx is the transaction-scoped form of ConsumeIfOpen.
func ConsumeIfOpenTx(ctx context.Context, q querier, needID id.NeedID, donationID id.DonationID, now time.Time) (*models.Need, error) {
	query := `
		UPDATE needs
		SET matched_donation_id = $2, updated_at = $3
		WHERE id = $1 AND matched_donation_id IS NULL
		RETURNING ` + needColumns
	need, err := scanNeed(q.QueryRowContext(ctx, query, needID.String(), donationID.String(), now))
	if err == nil {
		return need, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("consume need: %w", err)
	}
	// Zero rows: either unknown or already consumed.
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM needs WHERE id = $1)`, needID.String()).Scan(&exists); err != nil {
		return nil, fmt.Errorf("classify consume failure: %w", err)
	}
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return nil, sentinel.ErrConflict
}

func (s *PostgresStore) classifyOpenFailure(ctx context.Context, needID id.NeedID, recipientID id.UserID) error {
	existing, err := s.FindByID(ctx, needID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("classify need failure: %w", err)
	}
	if existing.RecipientID != recipientID {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Need, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list needs: %w", err)
	}
	defer rows.Close()

	needs := []*models.Need{}
	for rows.Next() {
		need, err := scanNeed(rows)
		if err != nil {
			return nil, fmt.Errorf("scan need: %w", err)
		}
		needs = append(needs, need)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list needs: %w", err)
	}
	return needs, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanNeed(r row) (*models.Need, error) {
	var need models.Need
	var rawID, rawRecipientID, rawLocationID string
	var rawMatchedID sql.NullString
	err := r.Scan(
		&rawID,
		&rawRecipientID,
		&need.FoodType,
		&need.Quantity,
		&rawLocationID,
		&need.ContactPhone,
		&need.Notes,
		&rawMatchedID,
		&need.CreatedAt,
		&need.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	needID, err := id.ParseNeedID(rawID)
	if err != nil {
		return nil, err
	}
	recipientID, err := id.ParseUserID(rawRecipientID)
	if err != nil {
		return nil, err
	}
	locationID, err := id.ParseLocationID(rawLocationID)
	if err != nil {
		return nil, err
	}
	need.ID = needID
	need.RecipientID = recipientID
	need.DropoffLocationID = locationID

	if rawMatchedID.Valid {
		donationID, err := id.ParseDonationID(rawMatchedID.String)
		if err != nil {
			return nil, err
		}
		need.MatchedDonationID = &donationID
	}
	return &need, nil
}
