// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// User 对应于数据库中的 'users' 表，保存认证账号信息。
// 密码哈希等敏感字段不会出现在 JSON 输出中。
type User struct {
	// ID 是用户的唯一标识符，与 Profile.ID 一致。
	ID string `gorm:"type:uuid;primaryKey" json:"id"`
	// Email 是登录凭证，全局唯一。
	Email string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	// PasswordHash 存储 bcrypt 哈希后的密码。
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	// EmailConfirmedAt 记录邮箱确认时间，未确认时为 NULL。
	// 未确认的账号不允许登录。
	EmailConfirmedAt *time.Time `gorm:"index" json:"email_confirmed_at"`
	// CreatedAt 由 GORM 自动管理，记录创建时间。
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	// UpdatedAt 由 GORM 自动管理，记录最后更新时间。
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Confirmed 报告账号是否已完成邮箱确认。
func (u *User) Confirmed() bool {
	return u.EmailConfirmedAt != nil
}
