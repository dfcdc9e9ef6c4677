package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/normatel/norahub/authz"
	"github.com/normatel/norahub/db"
)

const notificationColumns = `id, COALESCE(user_id, ''), title, body, kind, channels, emails,
	read, delivered, created_at`

// NotificationService stores notifications and announces them on Redis
// pub/sub. Actual delivery (push, e-mail gateway) happens in the worker,
// which polls undelivered rows.
type NotificationService struct {
	PG    *sql.DB
	Redis *redis.Client
}

func NewNotificationService(pg *sql.DB, rdb *redis.Client) *NotificationService {
	return &NotificationService{PG: pg, Redis: rdb}
}

// Notify stores a notification for a user and publishes it for live clients.
// Errors are logged, not returned: a failed notification never fails the
// operation that produced it.
func (s *NotificationService) Notify(ctx context.Context, n *db.Notification) {
	if n.UserID == "" {
		log.Printf("notification dropped: no user id (kind %s)", n.Kind)
		return
	}
	if err := s.insert(ctx, n); err != nil {
		log.Printf("failed to store notification for %s: %v", n.UserID, err)
		return
	}
	s.publish(ctx, n)
}

// NotifyEmails stores a notification addressed to an explicit e-mail list
// (card notification recipients, not portal users)
func (s *NotificationService) NotifyEmails(ctx context.Context, emails []string, n *db.Notification) {
	if len(emails) == 0 {
		return
	}
	n.Emails = emails
	if err := s.insert(ctx, n); err != nil {
		log.Printf("failed to store e-mail notification: %v", err)
	}
}

func (s *NotificationService) insert(ctx context.Context, n *db.Notification) error {
	n.ID = uuid.New().String()
	n.CreatedAt = time.Now()
	if n.Channels == nil {
		n.Channels = []string{"push"}
	}

	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, body, kind, channels, emails,
		                           read, delivered, created_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, false, false, $8)
	`, n.ID, n.UserID, n.Title, n.Body, n.Kind, pq.Array(n.Channels), pq.Array(n.Emails), n.CreatedAt)
	return err
}

func (s *NotificationService) publish(ctx context.Context, n *db.Notification) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}
	if err := s.Redis.Publish(ctx, "notifications:"+n.UserID, payload).Err(); err != nil {
		log.Printf("failed to publish notification for %s: %v", n.UserID, err)
	}
}

// ListForUser returns a user's notifications, newest first
func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]db.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkRead marks a single notification as read, scoped to its owner
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	result, err := s.PG.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// MarkAllRead marks every notification of a user as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.PG.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE user_id = $1 AND read = false
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// UndeliveredBatch returns the oldest undelivered notifications for the
// delivery worker
func (s *NotificationService) UndeliveredBatch(ctx context.Context, limit int) ([]db.Notification, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE delivered = false
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch undelivered notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkDelivered flags a notification as handed off to its channels
func (s *NotificationService) MarkDelivered(ctx context.Context, notificationID string) error {
	_, err := s.PG.ExecContext(ctx, `
		UPDATE notifications SET delivered = true WHERE id = $1
	`, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

func scanNotifications(rows *sql.Rows) ([]db.Notification, error) {
	notifications := make([]db.Notification, 0)
	for rows.Next() {
		var n db.Notification
		var channels, emails pq.StringArray
		err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Kind, &channels, &emails,
			&n.Read, &n.Delivered, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Channels = channels
		n.Emails = emails
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
