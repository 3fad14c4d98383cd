package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foodbridge/internal/donation/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// PostgresStore persists donations in PostgreSQL. This store is pure I/O;
// matching policy lives in the services.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const donationColumns = `id, donor_id, food_type, quantity, location_id, available_from, available_to, expiry_date, notes, status, recipient_id, fulfilled_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, donation *models.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	var recipientID any
	if donation.RecipientID != nil {
		recipientID = donation.RecipientID.String()
	}
	_, err := s.db.ExecContext(ctx, query,
		donation.ID.String(),
		donation.DonorID.String(),
		donation.FoodType,
		donation.Quantity,
		donation.LocationID.String(),
		donation.AvailableFrom,
		donation.AvailableTo,
		donation.ExpiryDate,
		donation.Notes,
		string(donation.Status),
		recipientID,
		donation.FulfilledAt,
		donation.CreatedAt,
		donation.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create donation: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donationID id.DonationID) (*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	donation, err := scanDonation(s.db.QueryRowContext(ctx, query, donationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donation: %w", err)
	}
	return donation, nil
}

func (s *PostgresStore) ListOpen(ctx context.Context, now time.Time, page id.Page) ([]*models.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE status = $1 AND expiry_date > $2 AND available_to > $2
		ORDER BY created_at
		LIMIT $3 OFFSET $4
	`
	return s.list(ctx, query, string(models.StatusPending), now, page.Limit, page.Offset)
}

func (s *PostgresStore) ListByDonor(ctx context.Context, donorID id.UserID, page id.Page) ([]*models.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE donor_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, donorID.String(), page.Limit, page.Offset)
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID id.UserID, page id.Page) ([]*models.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE recipient_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, recipientID.String(), page.Limit, page.Offset)
}

// ClaimIfPending is the single conditional update that decides the winner of
// concurrent claims. The predicate re-checks expiry so a stale proposal can
// never commit an expired donation.
func (s *PostgresStore) ClaimIfPending(ctx context.Context, donationID id.DonationID, recipientID id.UserID, status models.Status, now time.Time) (*models.Donation, error) {
	return ClaimIfPendingTx(ctx, s.db, donationID, recipientID, status, now)
}

// querier lets the claim run against the pool or inside a transaction; the
// matching commit reuses it under its own sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ClaimIfPendingTx is the transaction-scoped form of ClaimIfPending.
func ClaimIfPendingTx(ctx context.Context, q querier, donationID id.DonationID, recipientID id.UserID, status models.Status, now time.Time) (*models.Donation, error) {
	query := `
		UPDATE donations
		SET status = $2, recipient_id = $3, updated_at = $4
		WHERE id = $1
		  AND status = $5
		  AND expiry_date > $4
		  AND available_to > $4
		RETURNING ` + donationColumns
	donation, err := scanDonation(q.QueryRowContext(ctx, query,
		donationID.String(), string(status), recipientID.String(), now, string(models.StatusPending)))
	if err == nil {
		return donation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim donation: %w", err)
	}
	return nil, classifyClaimFailure(ctx, q, donationID, now)
}

// classifyClaimFailure distinguishes unknown ids, lost races, and expiry so
// callers can surface precise errors.
func classifyClaimFailure(ctx context.Context, q querier, donationID id.DonationID, now time.Time) error {
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	existing, err := scanDonation(q.QueryRowContext(ctx, query, donationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("classify claim failure: %w", err)
	}
	if existing.Status == models.StatusPending && existing.IsExpired(now) {
		return sentinel.ErrExpired
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) ReleaseClaim(ctx context.Context, donationID id.DonationID, now time.Time) error {
	query := `
		UPDATE donations
		SET status = $2, recipient_id = NULL, updated_at = $3
		WHERE id = $1
	`
	result, err := s.db.ExecContext(ctx, query, donationID.String(), string(models.StatusPending), now)
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return requireOneRow(result, sentinel.ErrNotFound)
}

func (s *PostgresStore) CancelIfPending(ctx context.Context, donationID id.DonationID, donorID id.UserID, now time.Time) error {
	query := `
		UPDATE donations
		SET status = $3, updated_at = $4
		WHERE id = $1 AND donor_id = $2 AND status = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		donationID.String(), donorID.String(), string(models.StatusCancelled), now, string(models.StatusPending))
	if err != nil {
		return fmt.Errorf("cancel donation: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel donation rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	// Zero rows: either the donation is gone / not the donor's, or it has
	// already left PENDING.
	existing, err := s.FindByID(ctx, donationID)
	if err != nil {
		return sentinel.ErrNotFound
	}
	if existing.DonorID != donorID {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) MarkFulfilled(ctx context.Context, donationID id.DonationID, at time.Time) error {
	query := `UPDATE donations SET fulfilled_at = $2, updated_at = $2 WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, donationID.String(), at)
	if err != nil {
		return fmt.Errorf("mark donation fulfilled: %w", err)
	}
	return requireOneRow(result, sentinel.ErrNotFound)
}

func (s *PostgresStore) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE donations
		SET status = $1, updated_at = $2
		WHERE status = $3 AND (expiry_date <= $2 OR available_to <= $2)
	`
	result, err := s.db.ExecContext(ctx, query, string(models.StatusExpired), now, string(models.StatusPending))
	if err != nil {
		return 0, fmt.Errorf("expire stale donations: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale rows affected: %w", err)
	}
	return int(rows), nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Donation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	defer rows.Close()

	donations := []*models.Donation{}
	for rows.Next() {
		donation, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan donation: %w", err)
		}
		donations = append(donations, donation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return donations, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanDonation(r row) (*models.Donation, error) {
	var donation models.Donation
	var rawID, rawDonorID, rawLocationID, rawStatus string
	var rawRecipientID sql.NullString
	var fulfilledAt sql.NullTime
	err := r.Scan(
		&rawID,
		&rawDonorID,
		&donation.FoodType,
		&donation.Quantity,
		&rawLocationID,
		&donation.AvailableFrom,
		&donation.AvailableTo,
		&donation.ExpiryDate,
		&donation.Notes,
		&rawStatus,
		&rawRecipientID,
		&fulfilledAt,
		&donation.CreatedAt,
		&donation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	donationID, err := id.ParseDonationID(rawID)
	if err != nil {
		return nil, err
	}
	donorID, err := id.ParseUserID(rawDonorID)
	if err != nil {
		return nil, err
	}
	locationID, err := id.ParseLocationID(rawLocationID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	donation.ID = donationID
	donation.DonorID = donorID
	donation.LocationID = locationID
	donation.Status = status

	if rawRecipientID.Valid {
		recipientID, err := id.ParseUserID(rawRecipientID.String)
		if err != nil {
			return nil, err
		}
		donation.RecipientID = &recipientID
	}
	if fulfilledAt.Valid {
		donation.FulfilledAt = &fulfilledAt.Time
	}
	return &donation, nil
}

func requireOneRow(result sql.Result, missing error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return missing
	}
	return nil
}
