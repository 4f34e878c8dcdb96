package models

import "gorm.io/gorm"

// Token holds the persisted refresh secret for a user. There is never more
// than one row per user: the secret is reused across logins and only rotated
// through logout.
type Token struct {
	gorm.Model
	RefreshToken string `gorm:"size:128;not null"`
	IP           string `gorm:"size:64"`
	UserAgent    string `gorm:"size:256"`
	UserID       uint   `gorm:"uniqueIndex;not null"`
}
