// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"neomate-go/internal/model"
)

// UserRepository 接口定义了用户账号数据的持久化操作。
type UserRepository interface {
	// CreateWithProfile 在同一事务中创建用户账号和对应的 Profile 行。
	CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	// MarkConfirmed 将账号标记为已完成邮箱确认。
	MarkConfirmed(ctx context.Context, id string, at time.Time) error
}

// userRepository 是 UserRepository 接口的 GORM 实现。
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建一个新的 UserRepository 实例。
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// CreateWithProfile 创建用户与 Profile。两行要么都写入，要么都不写入。
func (r *userRepository) CreateWithProfile(ctx context.Context, user *model.User, profile *model.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(profile).Error
	})
}

// FindByEmail 根据邮箱从数据库中查找一个用户。
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID 根据用户 ID 从数据库中查找一个用户。
func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// MarkConfirmed 写入邮箱确认时间。
func (r *userRepository) MarkConfirmed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("email_confirmed_at", at).Error
}
