package models

import (
	"strings"

	"gorm.io/gorm"
)

// Role is the closed set of account kinds. Assigned once at email
// verification, immutable afterwards.
type Role string

const (
	RoleVendor  Role = "vendor"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleVendor, RoleStudent:
		return true
	}
	return false
}

type User struct {
	gorm.Model
	Username string `gorm:"size:20;uniqueIndex;not null" json:"username"`
	// lower-cased shadow of Username so the unique index also catches
	// case-insensitive duplicates
	UsernameLower string `gorm:"size:20;uniqueIndex;not null" json:"-"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Role          Role   `gorm:"size:10;not null" json:"role"`

	// comma-separated trusted IPs, at least one after creation
	IPAddresses string `gorm:"type:text;not null" json:"-"`

	FoodsLiked     []Food `gorm:"many2many:user_foods_liked" json:"foodsLiked,omitempty"`
	FoodsNotLiked  []Food `gorm:"many2many:user_foods_not_liked" json:"foodsNotLiked,omitempty"`
	RecommendFoods []Food `gorm:"many2many:user_recommend_foods" json:"recommendFoods,omitempty"`
}

func (u *User) TrustedIPs() []string {
	if u.IPAddresses == "" {
		return nil
	}
	return strings.Split(u.IPAddresses, ",")
}

func (u *User) HasIP(ip string) bool {
	for _, trusted := range u.TrustedIPs() {
		if trusted == ip {
			return true
		}
	}
	return false
}

// AddIP appends ip to the trusted set if not already present.
func (u *User) AddIP(ip string) {
	if ip == "" || u.HasIP(ip) {
		return
	}
	if u.IPAddresses == "" {
		u.IPAddresses = ip
		return
	}
	u.IPAddresses += "," + ip
}
