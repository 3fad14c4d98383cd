package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"foodbridge/internal/delivery/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// PostgresStore persists deliveries in PostgreSQL. A transition is one
// transaction: the conditional UPDATE keyed on the predecessor status plus
// the timeline insert. The deliveries table carries UNIQUE(donation_id).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const deliveryColumns = `id, donation_id, pickup_location_id, dropoff_location_id, recipient_phone, notes, status, staff_id, scheduled_pickup_at, scheduled_dropoff_at, delivered_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, delivery *models.Delivery) error {
	return InsertTx(ctx, s.db, delivery)
}

// execer lets the insert run against the pool or inside a transaction; the
// matching commit reuses it under its own sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertTx is the transaction-scoped form of Create.
func InsertTx(ctx context.Context, e execer, delivery *models.Delivery) error {
	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	var staffID any
	if delivery.StaffID != nil {
		staffID = delivery.StaffID.String()
	}
	_, err := e.ExecContext(ctx, query,
		delivery.ID.String(),
		delivery.DonationID.String(),
		delivery.PickupLocationID.String(),
		delivery.DropoffLocationID.String(),
		delivery.RecipientPhone,
		delivery.Notes,
		string(delivery.Status),
		staffID,
		delivery.ScheduledPickupAt,
		delivery.ScheduledDropoffAt,
		delivery.DeliveredAt,
		delivery.CreatedAt,
		delivery.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE id = $1`
	delivery, err := scanDelivery(s.db.QueryRowContext(ctx, query, deliveryID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	return delivery, nil
}

func (s *PostgresStore) FindByDonation(ctx context.Context, donationID id.DonationID) (*models.Delivery, error) {
	query := `SELECT ` + deliveryColumns + ` FROM deliveries WHERE donation_id = $1`
	delivery, err := scanDelivery(s.db.QueryRowContext(ctx, query, donationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find delivery by donation: %w", err)
	}
	return delivery, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status, page id.Page) ([]*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, string(status), page.Limit, page.Offset)
}

func (s *PostgresStore) ListUnassigned(ctx context.Context, page id.Page) ([]*models.Delivery, error) {
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE staff_id IS NULL AND status = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, string(models.StatusPending), page.Limit, page.Offset)
}

func (s *PostgresStore) ListByStaff(ctx context.Context, staffID id.UserID, deliveredOnly bool, page id.Page) ([]*models.Delivery, error) {
	if deliveredOnly {
		query := `
			SELECT ` + deliveryColumns + `
			FROM deliveries
			WHERE staff_id = $1 AND status = $2
			ORDER BY created_at
			LIMIT $3 OFFSET $4
		`
		return s.list(ctx, query, staffID.String(), string(models.StatusDelivered), page.Limit, page.Offset)
	}
	query := `
		SELECT ` + deliveryColumns + `
		FROM deliveries
		WHERE staff_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`
	return s.list(ctx, query, staffID.String(), page.Limit, page.Offset)
}

func (s *PostgresStore) Transition(ctx context.Context, params TransitionParams) (*models.Delivery, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		UPDATE deliveries
		SET status = $2,
		    staff_id = COALESCE($3, staff_id),
		    scheduled_pickup_at = COALESCE($4, scheduled_pickup_at),
		    scheduled_dropoff_at = COALESCE($5, scheduled_dropoff_at),
		    delivered_at = COALESCE($6, delivered_at),
		    updated_at = $7
		WHERE id = $1 AND status = $8
	`
	args := []any{
		params.DeliveryID.String(),
		string(params.To),
		nullableID(params.AssignStaffID),
		params.ScheduledPickupAt,
		params.ScheduledDropoffAt,
		params.DeliveredAt,
		params.Now,
		string(params.From),
	}
	if params.AssignStaffID != nil {
		query += ` AND staff_id IS NULL`
	}
	if params.RequireStaffID != nil {
		query += ` AND staff_id = $9`
		args = append(args, params.RequireStaffID.String())
	}
	query += ` RETURNING ` + deliveryColumns

	delivery, err := scanDelivery(tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transition delivery: %w", err)
		}
		return nil, s.classifyTransitionFailure(ctx, params)
	}

	eventQuery := `
		INSERT INTO delivery_timeline_events (id, delivery_id, status, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, eventQuery,
		uuid.New().String(), delivery.ID.String(), string(params.To), params.Detail, params.Now); err != nil {
		return nil, fmt.Errorf("append timeline event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return delivery, nil
}

// classifyTransitionFailure distinguishes unknown ids and staff mismatches
// from deliveries that are simply not in the expected status.
func (s *PostgresStore) classifyTransitionFailure(ctx context.Context, params TransitionParams) error {
	existing, err := s.FindByID(ctx, params.DeliveryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("classify transition failure: %w", err)
	}
	if params.RequireStaffID != nil {
		if existing.StaffID == nil || *existing.StaffID != *params.RequireStaffID {
			return sentinel.ErrNotFound
		}
	}
	return sentinel.ErrInvalidState
}

func (s *PostgresStore) Timeline(ctx context.Context, deliveryID id.DeliveryID) ([]*models.TimelineEvent, error) {
	if _, err := s.FindByID(ctx, deliveryID); err != nil {
		return nil, err
	}
	query := `
		SELECT id, delivery_id, status, detail, created_at
		FROM delivery_timeline_events
		WHERE delivery_id = $1
		ORDER BY created_at
	`
	rows, err := s.db.QueryContext(ctx, query, deliveryID.String())
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := []*models.TimelineEvent{}
	for rows.Next() {
		var event models.TimelineEvent
		var rawID, rawDeliveryID, rawStatus string
		if err := rows.Scan(&rawID, &rawDeliveryID, &rawStatus, &event.Detail, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		eventID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse timeline event id: %w", err)
		}
		parsedDeliveryID, err := id.ParseDeliveryID(rawDeliveryID)
		if err != nil {
			return nil, err
		}
		status, err := models.ParseStatus(rawStatus)
		if err != nil {
			return nil, err
		}
		event.ID = eventID
		event.DeliveryID = parsedDeliveryID
		event.Status = status
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	return events, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []*models.Delivery{}
	for rows.Next() {
		delivery, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, delivery)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return deliveries, nil
}

func nullableID(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return userID.String()
}

type row interface {
	Scan(dest ...any) error
}

func scanDelivery(r row) (*models.Delivery, error) {
	var delivery models.Delivery
	var rawID, rawDonationID, rawPickupID, rawDropoffID, rawStatus string
	var rawStaffID sql.NullString
	var scheduledPickupAt, scheduledDropoffAt, deliveredAt sql.NullTime
	err := r.Scan(
		&rawID,
		&rawDonationID,
		&rawPickupID,
		&rawDropoffID,
		&delivery.RecipientPhone,
		&delivery.Notes,
		&rawStatus,
		&rawStaffID,
		&scheduledPickupAt,
		&scheduledDropoffAt,
		&deliveredAt,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	deliveryID, err := id.ParseDeliveryID(rawID)
	if err != nil {
		return nil, err
	}
	donationID, err := id.ParseDonationID(rawDonationID)
	if err != nil {
		return nil, err
	}
	pickupID, err := id.ParseLocationID(rawPickupID)
	if err != nil {
		return nil, err
	}
	dropoffID, err := id.ParseLocationID(rawDropoffID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	delivery.ID = deliveryID
	delivery.DonationID = donationID
	delivery.PickupLocationID = pickupID
	delivery.DropoffLocationID = dropoffID
	delivery.Status = status

	if rawStaffID.Valid {
		staffID, err := id.ParseUserID(rawStaffID.String)
		if err != nil {
			return nil, err
		}
		delivery.StaffID = &staffID
	}
	if scheduledPickupAt.Valid {
		delivery.ScheduledPickupAt = &scheduledPickupAt.Time
	}
	if scheduledDropoffAt.Valid {
		delivery.ScheduledDropoffAt = &scheduledDropoffAt.Time
	}
	if deliveredAt.Valid {
		delivery.DeliveredAt = &deliveredAt.Time
	}
	return &delivery, nil
}
