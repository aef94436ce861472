package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"neomate-go/internal/model"
	"neomate-go/pkg/llm"
)

// 内存版仓储实现，行为对齐 GORM 实现：找不到记录时返回 gorm.ErrRecordNotFound，
// 创建时填充时间戳。

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	// profiles 非空时，CreateWithProfile 同步写入 Profile，模拟同事务语义
	profiles *fakeProfileRepo
	// failFind 模拟数据库故障
	failFind error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	r.mu.Lock()
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = user
	r.mu.Unlock()
	if r.profiles != nil {
		r.profiles.mu.Lock()
		profile.CreatedAt, profile.UpdatedAt = now, now
		r.profiles.profiles[profile.ID] = profile
		r.profiles.mu.Unlock()
	}
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind != nil {
		return nil, r.failFind
	}
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFind != nil {
		return nil, r.failFind
	}
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.EmailConfirmedAt = &at
	}
	return nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[string]*model.Profile{}}
}

func (r *fakeProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProfileRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Profile, error) {
	r.mu.Lock()
	p, ok := r.profiles[id]
	if !ok {
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	if v, ok := fields["full_name"]; ok {
		name := v.(string)
		p.FullName = &name
	}
	if v, ok := fields["updated_at"]; ok {
		p.UpdatedAt = v.(time.Time)
	}
	r.mu.Unlock()
	return r.FindByID(ctx, id)
}

type fakeConvRepo struct {
	mu    sync.Mutex
	convs map[string]*model.Conversation
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: map[string]*model.Conversation{}}
}

func (r *fakeConvRepo) ListByUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Conversation
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *fakeConvRepo) Create(ctx context.Context, conv *model.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	conv.CreatedAt, conv.UpdatedAt = now, now
	r.convs[conv.ID] = conv
	return nil
}

func (r *fakeConvRepo) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeConvRepo) UpdateTitle(ctx context.Context, id, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		c.Title = title
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeConvRepo) Touch(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.convs[id]; ok {
		c.UpdatedAt = time.Now()
	}
	return nil
}

func (r *fakeConvRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	return nil
}

type fakeMsgRepo struct {
	mu       sync.Mutex
	messages map[string][]model.Message // conversationID -> 按创建顺序
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{messages: map[string][]model.Message{}}
}

func (r *fakeMsgRepo) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Message, len(r.messages[conversationID]))
	copy(out, r.messages[conversationID])
	return out, nil
}

func (r *fakeMsgRepo) Create(ctx context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = time.Now()
	r.messages[msg.ConversationID] = append(r.messages[msg.ConversationID], *msg)
	return nil
}

type fakeTokenStore struct {
	mu            sync.Mutex
	blacklist     map[string]bool
	confirmTokens map[string]string
	// failIsBlacklisted 模拟 Redis 故障
	failIsBlacklisted error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{
		blacklist:     map[string]bool{},
		confirmTokens: map[string]string{},
	}
}

func (s *fakeTokenStore) BlacklistToken(ctx context.Context, tokenString string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[tokenString] = true
	return nil
}

func (s *fakeTokenStore) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIsBlacklisted != nil {
		return false, s.failIsBlacklisted
	}
	return s.blacklist[tokenString], nil
}

func (s *fakeTokenStore) SaveConfirmToken(ctx context.Context, confirmToken, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmTokens[confirmToken] = userID
	return nil
}

func (s *fakeTokenStore) TakeConfirmToken(ctx context.Context, confirmToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID := s.confirmTokens[confirmToken]
	delete(s.confirmTokens, confirmToken)
	return userID, nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string // 收件人列表
}

func (m *fakeMailer) SendConfirmation(to, confirmToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

// fakeLLM 返回固定文本并记录调用次数。
type fakeLLM struct {
	mu         sync.Mutex
	reply      string
	title      string
	titleCalls int
}

func (f *fakeLLM) GenerateReply(ctx context.Context, history []llm.Message) string {
	return f.reply
}

func (f *fakeLLM) GenerateTitle(ctx context.Context, firstMessage string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	return f.title
}
