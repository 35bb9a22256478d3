package model

import (
	"time"

	"gorm.io/gorm"
)

// UserRole 用户角色：普通用户 / 管理员
type UserRole int

const (
	RoleUser UserRole = iota
	RoleAdmin
)

// String 返回 JWT claim 中使用的角色名。
func (r UserRole) String() string {
	if r == RoleAdmin {
		return "Admin"
	}
	return "User"
}

// ParseRole 将角色名还原为枚举，未知值按普通用户处理。
func ParseRole(s string) UserRole {
	if s == "Admin" {
		return RoleAdmin
	}
	return RoleUser
}

// User 系统账户。用户名与邮箱全局唯一；账户只停用不物理删除。
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string   `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string   `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"size:72;not null" json:"-"` // bcrypt 哈希，永不下发
	Role         UserRole `gorm:"not null;default:0" json:"role"`
	IsActive     bool     `gorm:"not null;default:true" json:"is_active"`
}

// 显式实现结构，确定表名
func (User) TableName() string { return "users" }
