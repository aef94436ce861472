package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenStore 定义了短生命周期令牌在 Redis 中的存取操作：
// 登出后的 token 黑名单，以及注册确认令牌。
type TokenStore interface {
	// BlacklistToken 将 token 加入黑名单，ttl 取 token 的剩余有效期。
	BlacklistToken(ctx context.Context, tokenString string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, tokenString string) (bool, error)
	// SaveConfirmToken 保存确认令牌到用户 ID 的映射。
	SaveConfirmToken(ctx context.Context, confirmToken, userID string, ttl time.Duration) error
	// TakeConfirmToken 取出并删除确认令牌对应的用户 ID，保证令牌一次性使用。
	// 令牌不存在时返回空字符串。
	TakeConfirmToken(ctx context.Context, confirmToken string) (string, error)
}

type redisTokenStore struct {
	redisClient *redis.Client
}

// NewTokenStore 创建一个基于 Redis 的 TokenStore 实例。
func NewTokenStore(redisClient *redis.Client) TokenStore {
	return &redisTokenStore{redisClient: redisClient}
}

// BlacklistToken 将 token 存入黑名单，值为 "true"，并设置过期时间。
func (s *redisTokenStore) BlacklistToken(ctx context.Context, tokenString string, ttl time.Duration) error {
	if ttl <= 0 {
		// token 已过期，无需入黑名单
		return nil
	}
	return s.redisClient.Set(ctx, "blacklist:"+tokenString, "true", ttl).Err()
}

// IsBlacklisted 检查 token 是否在黑名单中。
func (s *redisTokenStore) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	err := s.redisClient.Get(ctx, "blacklist:"+tokenString).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// SaveConfirmToken 保存确认令牌。
func (s *redisTokenStore) SaveConfirmToken(ctx context.Context, confirmToken, userID string, ttl time.Duration) error {
	return s.redisClient.Set(ctx, "confirm:"+confirmToken, userID, ttl).Err()
}

// TakeConfirmToken 原子地读取并删除确认令牌。
func (s *redisTokenStore) TakeConfirmToken(ctx context.Context, confirmToken string) (string, error) {
	userID, err := s.redisClient.GetDel(ctx, "confirm:"+confirmToken).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
