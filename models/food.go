package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	CategoryNoodle  = "Noodle"
	CategoryRice    = "Rice"
	CategorySoup    = "Soup"
	CategoryBread   = "Bread"
	CategoryDessert = "Dessert"

	MealBreakfast = "Breakfast"
	MealLunch     = "Lunch"
	MealDinner    = "Dinner"

	TasteSweet  = "Sweet"
	TasteSour   = "Sour"
	TasteBitter = "Bitter"
	TasteSalty  = "Salty"
)

var (
	Categories = []string{CategoryNoodle, CategoryRice, CategorySoup, CategoryBread, CategoryDessert}
	MealTypes  = []string{MealBreakfast, MealLunch, MealDinner}
	Tastes     = []string{TasteSweet, TasteSour, TasteBitter, TasteSalty}
)

func ValidCategory(s string) bool { return contains(Categories, s) }
func ValidMealType(s string) bool { return contains(MealTypes, s) }

func ValidTastes(tastes []string) bool {
	if len(tastes) == 0 {
		return false
	}
	for _, t := range tastes {
		if !contains(Tastes, t) {
			return false
		}
	}
	return true
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type Food struct {
	gorm.Model
	FoodName        string  `gorm:"size:50;uniqueIndex;not null" json:"foodName"`
	VendorID        uint    `gorm:"index;not null" json:"vendor"`
	FoodDescription string  `gorm:"size:500" json:"foodDescription"`
	Location        string  `gorm:"size:100;not null" json:"location"`
	Price           float64 `gorm:"not null" json:"price"`
	Category        string  `gorm:"size:20;not null" json:"category"`
	MealType        string  `gorm:"size:20;not null" json:"type"`
	// comma-separated subset of Tastes
	Taste       string `gorm:"size:50;not null" json:"taste"`
	PrepareTime int    `gorm:"not null" json:"prepareTime"`

	AverageRating float64 `gorm:"default:0" json:"averageRating"`
	WeightRating  float64 `gorm:"default:0" json:"weightRating"`
	NumOfReviews  int     `gorm:"default:0" json:"numOfReviews"`

	Quantity        int    `gorm:"default:0" json:"quantity"`
	AcceptingOrders bool   `gorm:"default:false" json:"acceptingOrders"`
	Image           string `gorm:"size:256;not null" json:"image"`

	SimilarOnes []Food `gorm:"many2many:food_similars;joinForeignKey:FoodID;joinReferences:SimilarID" json:"similarOnes,omitempty"`
}

func (f *Food) Tastes() []string {
	if f.Taste == "" {
		return nil
	}
	return strings.Split(f.Taste, ",")
}
