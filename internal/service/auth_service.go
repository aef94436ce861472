// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"neomate-go/internal/model"
	"neomate-go/internal/repository"
	"neomate-go/pkg/hash"
	"neomate-go/pkg/log"
	"neomate-go/pkg/token"
)

// 认证相关的业务错误。Handler 层据此映射为对用户友好的提示文案。
var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotConfirmed   = errors.New("email not confirmed")
	ErrNotLoggedIn         = errors.New("no user logged in")
	ErrInvalidConfirmToken = errors.New("invalid or expired confirmation token")
)

// confirmTokenTTL 是注册确认令牌的有效期。
const confirmTokenTTL = 24 * time.Hour

// restoreTimeout 是会话恢复的最长等待时间，超时按"未登录"处理。
const restoreTimeout = 10 * time.Second

// ConfirmationSender 发送注册确认邮件。
type ConfirmationSender interface {
	SendConfirmation(to, confirmToken string) error
}

// Session 是一次已验证会话的视图：账号身份加上展示用的 Profile。
// Profile 行缺失时 Profile 为 nil，不视为错误。
type Session struct {
	User    *model.User    `json:"user"`
	Profile *model.Profile `json:"profile"`
}

// TokenPair 是一次签发的 access token 与 refresh token。
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService 接口定义了所有与账号认证相关的业务操作。
type AuthService interface {
	// Register 创建账号并发出确认邮件。注册成功不等于可登录：
	// 账号在邮箱确认前处于 pending 状态。
	Register(ctx context.Context, email, password string, fullName *string) (*model.User, error)
	// Confirm 消费确认令牌，将账号标记为已确认。
	Confirm(ctx context.Context, confirmToken string) error
	Login(ctx context.Context, email, password string) (*Session, *TokenPair, error)
	// RestoreSession 用已持有的 access token 恢复会话。
	// token 无效、已登出或恢复超时都返回 (nil, nil)：恢复失败从不报错，只回到未登录态。
	RestoreSession(ctx context.Context, tokenString string) (*Session, error)
	Logout(ctx context.Context, tokenString string) error
	// UpdateProfile 对当前用户的 Profile 做部分更新。
	UpdateProfile(ctx context.Context, userID string, fullName *string) (*model.Profile, error)
	RefreshToken(ctx context.Context, refreshTokenString string) (*TokenPair, error)
}

// authService 是 AuthService 接口的实现。
type authService struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	tokenStore  repository.TokenStore
	jwtManager  *token.JWTManager
	mailer      ConfirmationSender
	mailEnabled bool
}

// NewAuthService 创建一个新的 AuthService 实例。
// mailEnabled 为 false 时不发邮件，确认令牌会打到日志里供本地联调使用。
func NewAuthService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	tokenStore repository.TokenStore,
	jwtManager *token.JWTManager,
	mailer ConfirmationSender,
	mailEnabled bool,
) AuthService {
	return &authService{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		tokenStore:  tokenStore,
		jwtManager:  jwtManager,
		mailer:      mailer,
		mailEnabled: mailEnabled,
	}
}

// Register 处理用户注册的业务逻辑。
func (s *authService) Register(ctx context.Context, email, password string, fullName *string) (*model.User, error) {
	// 1. 检查邮箱是否已被占用
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. 对密码进行哈希处理
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 3. 账号与 Profile 共用同一个 ID，在同一事务中创建
	userID := uuid.NewString()
	newUser := &model.User{
		ID:           userID,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	newProfile := &model.Profile{
		ID:       userID,
		Email:    email,
		FullName: fullName,
	}
	if err := s.userRepo.CreateWithProfile(ctx, newUser, newProfile); err != nil {
		return nil, err
	}

	// 4. 生成一次性确认令牌
	confirmToken := token.GenerateRandomString(32)
	if err := s.tokenStore.SaveConfirmToken(ctx, confirmToken, userID, confirmTokenTTL); err != nil {
		log.Errorf("[AuthService] 保存确认令牌失败, email: %s, error: %v", email, err)
		return nil, err
	}

	// 5. 发送确认邮件。邮件发送失败不影响注册结果，用户可以重新注册触发重发。
	if s.mailEnabled {
		go func() {
			if err := s.mailer.SendConfirmation(email, confirmToken); err != nil {
				log.Errorf("[AuthService] 发送确认邮件失败, email: %s, error: %v", email, err)
			}
		}()
	} else {
		log.Infof("[AuthService] 邮件未配置，确认令牌: %s (email: %s)", confirmToken, email)
	}

	return newUser, nil
}

// Confirm 消费确认令牌并将账号标记为已确认。令牌是一次性的。
func (s *authService) Confirm(ctx context.Context, confirmToken string) error {
	userID, err := s.tokenStore.TakeConfirmToken(ctx, confirmToken)
	if err != nil {
		return err
	}
	if userID == "" {
		return ErrInvalidConfirmToken
	}
	return s.userRepo.MarkConfirmed(ctx, userID, time.Now())
}

// Login 处理用户登录的业务逻辑。
// 未确认邮箱的账号即使密码正确也会被拒绝。
func (s *authService) Login(ctx context.Context, email, password string) (*Session, *TokenPair, error) {
	// 1. 查找用户
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	// 2. 验证密码
	if !hash.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	// 3. 检查邮箱确认状态
	if !user.Confirmed() {
		return nil, nil, ErrEmailNotConfirmed
	}

	// 4. 生成 access token 和 refresh token
	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	return s.buildSession(ctx, user), pair, nil
}

// RestoreSession 用 access token 恢复会话。
//
// 失败路径全部收敛为未登录：token 无效或在黑名单里时直接返回 nil；
// 后端查询出错或超时，说明会话状态已不可信，按未登录处理，
// 避免把一个可能失效的会话当作有效继续用。
func (s *authService) RestoreSession(ctx context.Context, tokenString string) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, restoreTimeout)
	defer cancel()

	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil, nil
	}

	blacklisted, err := s.tokenStore.IsBlacklisted(ctx, tokenString)
	if err != nil {
		log.Warnf("[AuthService] 黑名单检查失败，按未登录处理: %v", err)
		return nil, nil
	}
	if blacklisted {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[AuthService] 会话恢复查询失败，按未登录处理, userID: %s, error: %v", claims.UserID, err)
		}
		// 防御性撤销：会话状态已不可信，这个 token 不应再被接受
		if revokeErr := s.tokenStore.BlacklistToken(ctx, tokenString, time.Until(claims.ExpiresAt.Time)); revokeErr != nil {
			log.Warnf("[AuthService] 防御性撤销失败: %v", revokeErr)
		}
		return nil, nil
	}

	return s.buildSession(ctx, user), nil
}

// Logout 将 token 加入黑名单。token 本身无效时视为已登出，不报错。
func (s *authService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.jwtManager.VerifyToken(tokenString)
	if err != nil {
		return nil
	}
	// token 的剩余有效期作为黑名单条目的过期时间
	return s.tokenStore.BlacklistToken(ctx, tokenString, time.Until(claims.ExpiresAt.Time))
}

// UpdateProfile 对当前用户的 Profile 做部分更新。
// 只有传入的字段会被写库，未传入的字段保持原值。
func (s *authService) UpdateProfile(ctx context.Context, userID string, fullName *string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrNotLoggedIn
	}

	fields := map[string]interface{}{}
	if fullName != nil {
		fields["full_name"] = *fullName
	}
	if len(fields) == 0 {
		// 没有任何要更新的字段，直接返回当前 Profile
		return s.profileRepo.FindByID(ctx, userID)
	}
	fields["updated_at"] = time.Now()

	return s.profileRepo.UpdateFields(ctx, userID, fields)
}

// RefreshToken 验证 refresh token 并签发新的 token 对。
func (s *authService) RefreshToken(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	claims, err := s.jwtManager.VerifyToken(refreshTokenString)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}

	blacklisted, err := s.tokenStore.IsBlacklisted(ctx, refreshTokenString)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, errors.New("invalid refresh token")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, errors.New("user not found")
	}

	return s.issueTokens(user)
}

// issueTokens 为用户签发一对新的 token。
func (s *authService) issueTokens(user *model.User) (*TokenPair, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// buildSession 组装会话视图。Profile 行缺失时容忍为 nil。
func (s *authService) buildSession(ctx context.Context, user *model.User) *Session {
	profile, err := s.profileRepo.FindByID(ctx, user.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warnf("[AuthService] 查询 Profile 失败, userID: %s, error: %v", user.ID, err)
		}
		profile = nil
	}
	return &Session{User: user, Profile: profile}
}
