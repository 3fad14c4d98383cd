package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"foodbridge/internal/notification/models"
	id "foodbridge/pkg/domain"
	"foodbridge/pkg/platform/sentinel"
)

// PostgresStore persists notifications in PostgreSQL. Queries are built with
// squirrel; the meta column is JSONB.
type PostgresStore struct {
	db   *sql.DB
	psql sq.StatementBuilderType
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:   db,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var notificationColumns = []string{"id", "user_id", "kind", "message", "meta", "read", "created_at"}

func (s *PostgresStore) Create(ctx context.Context, notification *models.Notification) error {
	meta, err := json.Marshal(notification.Meta)
	if err != nil {
		return fmt.Errorf("marshal notification meta: %w", err)
	}
	query, args, err := s.psql.
		Insert("notifications").
		Columns(notificationColumns...).
		Values(
			notification.ID.String(),
			notification.UserID.String(),
			string(notification.Kind),
			notification.Message,
			meta,
			notification.Read,
			notification.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build notification insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	query, args, err := s.psql.
		Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"id": notificationID.String()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notification select: %w", err)
	}
	notification, err := scanNotification(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return notification, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, page id.Page) ([]*models.Notification, error) {
	if page.Limit <= 0 {
		page = id.DefaultPage()
	}
	query, args, err := s.psql.
		Select(notificationColumns...).
		From("notifications").
		Where(sq.Eq{"user_id": userID.String()}).
		OrderBy("created_at DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build notification list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, userID id.UserID) (int, error) {
	query, args, err := s.psql.
		Select("count(*)").
		From("notifications").
		Where(sq.Eq{"user_id": userID.String(), "read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build unread count: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID) error {
	query, args, err := s.psql.
		Update("notifications").
		Set("read", true).
		Where(sq.Eq{"id": notificationID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark read: %w", err)
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark read rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type row interface {
	Scan(dest ...any) error
}

func scanNotification(r row) (*models.Notification, error) {
	var notification models.Notification
	var rawID, rawUserID, rawKind string
	var rawMeta []byte
	err := r.Scan(
		&rawID,
		&rawUserID,
		&rawKind,
		&notification.Message,
		&rawMeta,
		&notification.Read,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	notificationID, err := id.ParseNotificationID(rawID)
	if err != nil {
		return nil, err
	}
	userID, err := id.ParseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	notification.ID = notificationID
	notification.UserID = userID
	notification.Kind = models.Kind(rawKind)

	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &notification.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal notification meta: %w", err)
		}
	}
	return &notification, nil
}
