package postgres

import (
	"context"
	"database/sql"

	"github.com/Lovsan/chatterbox/internal/domain"
)

type MessageStore struct {
	db *sql.DB
}

// Append writes one message and returns it with the server-assigned id
// and timestamp. The persisted log order is the canonical order for
// history replay.
func (s *MessageStore) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	var (
		recipient sql.NullInt64
		group     sql.NullInt64
		attURL    sql.NullString
		attType   sql.NullString
		attDur    sql.NullFloat64
	)
	if msg.RecipientID != 0 {
		recipient = sql.NullInt64{Int64: int64(msg.RecipientID), Valid: true}
	}
	if msg.GroupID != 0 {
		group = sql.NullInt64{Int64: int64(msg.GroupID), Valid: true}
	}
	if msg.Attachment != nil {
		attURL = sql.NullString{String: msg.Attachment.URL, Valid: true}
		attType = sql.NullString{String: msg.Attachment.MediaType, Valid: true}
		attDur = sql.NullFloat64{Float64: msg.Attachment.Duration, Valid: true}
	}

	query := `
		INSERT INTO messages (sender_id, recipient_id, group_id, body,
			attachment_url, attachment_type, attachment_duration, ciphertext, nonce)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	persisted := *msg
	err := s.db.QueryRowContext(ctx, query,
		int64(msg.SenderID), recipient, group, msg.Body,
		attURL, attType, attDur, msg.Ciphertext, msg.Nonce,
	).Scan(&persisted.ID, &persisted.Timestamp)
	if err != nil {
		return nil, err
	}
	return &persisted, nil
}

func (s *MessageStore) DirectHistory(ctx context.Context, a, b domain.UserID, beforeID int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, u.username, m.recipient_id, m.body,
			m.attachment_url, m.attachment_type, m.attachment_duration,
			m.ciphertext, m.nonce, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.recipient_id IS NOT NULL
			AND LEAST(m.sender_id, m.recipient_id) = LEAST($1::bigint, $2::bigint)
			AND GREATEST(m.sender_id, m.recipient_id) = GREATEST($1::bigint, $2::bigint)
			AND ($3::bigint = 0 OR m.id < $3)
		ORDER BY m.id DESC
		LIMIT $4
	`
	rows, err := s.db.QueryContext(ctx, query, int64(a), int64(b), beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, false)
}

func (s *MessageStore) GroupHistory(ctx context.Context, gid domain.GroupID, beforeID int64, limit int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.sender_id, u.username, m.group_id, m.body,
			m.attachment_url, m.attachment_type, m.attachment_duration,
			m.ciphertext, m.nonce, m.created_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.group_id = $1 AND ($2::bigint = 0 OR m.id < $2)
		ORDER BY m.id DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, int64(gid), beforeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, true)
}

func scanMessages(rows *sql.Rows, group bool) ([]*domain.Message, error) {
	var out []*domain.Message
	for rows.Next() {
		var (
			msg     domain.Message
			target  int64
			attURL  sql.NullString
			attType sql.NullString
			attDur  sql.NullFloat64
		)
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.Sender, &target, &msg.Body,
			&attURL, &attType, &attDur, &msg.Ciphertext, &msg.Nonce, &msg.Timestamp); err != nil {
			return nil, err
		}
		if group {
			msg.GroupID = domain.GroupID(target)
		} else {
			msg.RecipientID = domain.UserID(target)
		}
		if attURL.Valid {
			msg.Attachment = &domain.Attachment{
				URL:       attURL.String,
				MediaType: attType.String,
				Duration:  attDur.Float64,
			}
		}
		out = append(out, &msg)
	}
	return out, rows.Err()
}
