package model

import "time"

// Profile 对应于数据库中的 'profiles' 表。
// 主键与认证身份一致，注册时与 User 在同一事务中创建。
type Profile struct {
	ID        string  `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string  `gorm:"type:varchar(255);not null" json:"email"`
	FullName  *string `gorm:"type:varchar(255)" json:"full_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
