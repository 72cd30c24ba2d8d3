// Package domain defines the persistent records and feed events of the
// text-sharing service.
package domain

import "time"

// User is an authenticated identity. Email is the login key.
type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"type:varchar(191);uniqueIndex:idx_email;not null" json:"email"`
	Password    string    `gorm:"type:text;not null" json:"-"`
	DisplayName string    `gorm:"type:varchar(191)" json:"display_name,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"-"`
}
