package model

import "time"

// User 是系统用户，登录名为邮箱。
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	Email             string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"`
	Name              string    `gorm:"type:varchar(255);not null" json:"name"`
	Password          string    `gorm:"type:varchar(255);not null" json:"-"`
	Role              Role      `gorm:"type:varchar(20);not null;default:CITIZEN" json:"role"`
	PreferredLanguage Language  `gorm:"type:varchar(2);not null;default:EN" json:"preferredLanguage"`
	IsActive          bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// SearchHistory 记录一次目录检索。
type SearchHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       *uint     `gorm:"index" json:"userId,omitempty"`
	Query        string    `gorm:"type:varchar(500);not null" json:"query"`
	Category     Category  `gorm:"type:varchar(32)" json:"category,omitempty"`
	Language     Language  `gorm:"type:varchar(2)" json:"language"`
	ResultsCount int       `json:"resultsCount"`
	CreatedAt    time.Time `gorm:"index" json:"timestamp"`
}
