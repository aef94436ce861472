package repository

import (
	"context"

	"gorm.io/gorm"

	"neomate-go/internal/model"
)

// ProfileRepository 接口定义了 Profile 数据的持久化操作。
type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	// UpdateFields 对指定 Profile 做部分更新，成功后返回更新后的完整行。
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建一个新的 ProfileRepository 实例。
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// FindByID 根据 ID 查找 Profile。
func (r *profileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateFields 执行部分更新。只有数据库写入成功后才读回并返回合并结果，
// 不做任何乐观更新。
func (r *profileRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Profile, error) {
	if err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", id).
		Updates(fields).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}
