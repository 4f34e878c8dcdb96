package models

import "gorm.io/gorm"

// Review is a student's rating of a food. One review per student per food,
// enforced by the composite unique index.
type Review struct {
	gorm.Model
	FoodID  uint   `gorm:"not null;uniqueIndex:idx_review_food_user" json:"food"`
	UserID  uint   `gorm:"not null;uniqueIndex:idx_review_food_user" json:"user"`
	Rating  int    `gorm:"not null" json:"rating"`
	Comment string `gorm:"size:500" json:"comment"`
}
