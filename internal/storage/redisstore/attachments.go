// Package redisstore keeps short-lived coordinator state in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/domain"
	"github.com/Lovsan/chatterbox/internal/storage"
)

const attachmentPrefix = "attachment:token:" // attachment:token:{token} -> metadata JSON

// AttachmentStore holds upload claim tokens with a TTL. Claim is one-shot
// (GETDEL) so a token can never be attached to two messages.
type AttachmentStore struct {
	rdb *redis.Client
}

func NewAttachmentStore(rdb *redis.Client) *AttachmentStore {
	return &AttachmentStore{rdb: rdb}
}

func (s *AttachmentStore) Put(ctx context.Context, token string, att *domain.Attachment, ttl time.Duration) error {
	data, err := json.Marshal(att)
	if err != nil {
		return fmt.Errorf("failed to marshal attachment: %w", err)
	}
	if err := s.rdb.Set(ctx, attachmentPrefix+token, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store attachment token: %w", err)
	}
	log.Debug().Str("module", "storage.redis").Str("token", token).Dur("ttl", ttl).Msg("attachment token issued")
	return nil
}

func (s *AttachmentStore) Claim(ctx context.Context, token string) (*domain.Attachment, error) {
	data, err := s.rdb.GetDel(ctx, attachmentPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrTokenExpired
		}
		return nil, fmt.Errorf("failed to claim attachment token: %w", err)
	}
	var att domain.Attachment
	if err := json.Unmarshal(data, &att); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attachment: %w", err)
	}
	return &att, nil
}
