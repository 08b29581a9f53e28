package notification

import (
	"context"
	"errors"
	"fmt"

	"marketlink/models"

	"github.com/go-redis/redis/v8"
)

var ErrNoDeviceToken = errors.New("no device token registered")

// TokenDirectory maps a party to its current FCM registration token.
type TokenDirectory interface {
	SetToken(ctx context.Context, role models.Role, partyID, token string) error
	Token(ctx context.Context, role models.Role, partyID string) (string, error)
}

// RedisTokenDirectory keeps tokens under fcm:<role>:<partyId>.
type RedisTokenDirectory struct {
	Client *redis.Client
}

func NewRedisTokenDirectory(client *redis.Client) *RedisTokenDirectory {
	return &RedisTokenDirectory{Client: client}
}

func tokenKey(role models.Role, partyID string) string {
	return fmt.Sprintf("fcm:%s:%s", role, partyID)
}

func (d *RedisTokenDirectory) SetToken(ctx context.Context, role models.Role, partyID, token string) error {
	if token == "" {
		return d.Client.Del(ctx, tokenKey(role, partyID)).Err()
	}
	return d.Client.Set(ctx, tokenKey(role, partyID), token, 0).Err()
}

func (d *RedisTokenDirectory) Token(ctx context.Context, role models.Role, partyID string) (string, error) {
	token, err := d.Client.Get(ctx, tokenKey(role, partyID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoDeviceToken
	}
	if err != nil {
		return "", fmt.Errorf("token directory: %w", err)
	}
	return token, nil
}
