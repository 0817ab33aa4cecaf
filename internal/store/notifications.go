package store

import (
	"context"
	"fmt"

	"github.com/erazemk/zastavljalnica/internal/dates"
	"github.com/erazemk/zastavljalnica/internal/model"
)

// InsertNotificationLog records one outbound notice attempt.
func InsertNotificationLog(ctx context.Context, db DBTX, l *model.NotificationLog) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notification_logs (channel, recipient, message, success, sent_at)
		 VALUES (?, ?, ?, ?, ?)`,
		l.Channel, l.Recipient, l.Message, l.Success, dates.FormatTimestamp(l.SentAt),
	)
	if err != nil {
		return fmt.Errorf("logging notification: %w", err)
	}
	return nil
}

// ListNotificationLogs returns the most recent notice attempts, newest first.
func ListNotificationLogs(ctx context.Context, db DBTX, limit int) ([]model.NotificationLog, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, channel, recipient, message, success, sent_at
		 FROM notification_logs ORDER BY sent_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notification logs: %w", err)
	}
	defer rows.Close()

	var logs []model.NotificationLog
	for rows.Next() {
		var l model.NotificationLog
		var sentAt string
		if err := rows.Scan(&l.ID, &l.Channel, &l.Recipient, &l.Message, &l.Success, &sentAt); err != nil {
			return nil, fmt.Errorf("scanning notification log: %w", err)
		}
		if l.SentAt, err = dates.ParseTimestamp(sentAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
