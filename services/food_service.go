package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"gorm.io/gorm"
)

type FoodService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewFoodService(db *gorm.DB, logger *slog.Logger) *FoodService {
	return &FoodService{db: db, logger: logger}
}

type FoodInput struct {
	FoodName        string   `json:"foodName"`
	FoodDescription string   `json:"foodDescription"`
	Location        string   `json:"location"`
	Price           float64  `json:"price"`
	Category        string   `json:"category"`
	MealType        string   `json:"type"`
	Taste           []string `json:"taste"`
	PrepareTime     int      `json:"prepareTime"`
	Quantity        int      `json:"quantity"`
	Image           string   `json:"image"`
	SimilarIDs      []uint   `json:"similarOnes"`
}

type FoodFilter struct {
	Category string
	MealType string
	VendorID uint
	Name     string
	Sort     string
}

func validateFoodInput(input *FoodInput) error {
	input.FoodName = utils.Sanitize(input.FoodName)
	input.FoodDescription = utils.Sanitize(input.FoodDescription)
	input.Location = utils.Sanitize(input.Location)

	if len(input.FoodName) < 3 || len(input.FoodName) > 50 {
		return errs.BadRequest("The food name must have from 3 to 50 characters")
	}
	if len(input.FoodDescription) > 500 {
		return errs.BadRequest("The description must have less than 500 characters")
	}
	if len(input.Location) < 3 || len(input.Location) > 100 {
		return errs.BadRequest("The location must have from 3 to 100 characters")
	}
	if input.Price < 0 {
		return errs.BadRequest("Price must be positive")
	}
	if !models.ValidCategory(input.Category) {
		return errs.BadRequest(fmt.Sprintf("%s is not a supported category", input.Category))
	}
	if !models.ValidMealType(input.MealType) {
		return errs.BadRequest(fmt.Sprintf("%s is not a supported type of meal", input.MealType))
	}
	if !models.ValidTastes(input.Taste) {
		return errs.BadRequest("Please provide supported types of taste")
	}
	if input.PrepareTime < 1 || input.PrepareTime > 59 {
		return errs.BadRequest("Time to prepare must be from 1 to 59 minutes")
	}
	if input.Quantity < 0 {
		return errs.BadRequest("Quantity must be positive")
	}
	if input.Image == "" {
		return errs.BadRequest("Please provide the image")
	}
	return nil
}

func (s *FoodService) Create(ctx context.Context, vendorID uint, input FoodInput) (*models.Food, error) {
	if err := validateFoodInput(&input); err != nil {
		return nil, err
	}

	food := &models.Food{
		FoodName:        input.FoodName,
		VendorID:        vendorID,
		FoodDescription: input.FoodDescription,
		Location:        input.Location,
		Price:           input.Price,
		Category:        input.Category,
		MealType:        input.MealType,
		Taste:           strings.Join(input.Taste, ","),
		PrepareTime:     input.PrepareTime,
		Quantity:        input.Quantity,
		Image:           input.Image,
	}
	if err := s.db.WithContext(ctx).Create(food).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.BadRequest("This food name already exists")
		}
		return nil, err
	}
	if len(input.SimilarIDs) > 0 {
		if err := s.replaceSimilar(ctx, food, input.SimilarIDs); err != nil {
			return nil, err
		}
	}
	return food, nil
}

func (s *FoodService) List(ctx context.Context, filter FoodFilter) ([]models.Food, error) {
	query := s.db.WithContext(ctx).Model(&models.Food{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MealType != "" {
		query = query.Where("meal_type = ?", filter.MealType)
	}
	if filter.VendorID != 0 {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.Name != "" {
		query = query.Where("food_name LIKE ?", "%"+filter.Name+"%")
	}

	switch filter.Sort {
	case "price":
		query = query.Order("price asc")
	case "-price":
		query = query.Order("price desc")
	case "rating":
		query = query.Order("weight_rating desc")
	default:
		query = query.Order("created_at desc")
	}

	var foods []models.Food
	if err := query.Find(&foods).Error; err != nil {
		return nil, err
	}
	return foods, nil
}

func (s *FoodService) Get(ctx context.Context, foodID uint) (*models.Food, error) {
	var food models.Food
	err := s.db.WithContext(ctx).Preload("SimilarOnes").First(&food, foodID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("No food with id: %d", foodID))
		}
		return nil, err
	}
	return &food, nil
}

func (s *FoodService) Update(ctx context.Context, vendorID, foodID uint, input FoodInput) (*models.Food, error) {
	if err := validateFoodInput(&input); err != nil {
		return nil, err
	}

	food, err := s.ownedFood(ctx, vendorID, foodID)
	if err != nil {
		return nil, err
	}

	food.FoodName = input.FoodName
	food.FoodDescription = input.FoodDescription
	food.Location = input.Location
	food.Price = input.Price
	food.Category = input.Category
	food.MealType = input.MealType
	food.Taste = strings.Join(input.Taste, ",")
	food.PrepareTime = input.PrepareTime
	food.Quantity = input.Quantity
	food.Image = input.Image

	if err := s.db.WithContext(ctx).Save(food).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.BadRequest("This food name already exists")
		}
		return nil, err
	}
	if err := s.replaceSimilar(ctx, food, input.SimilarIDs); err != nil {
		return nil, err
	}
	return food, nil
}

// Delete removes a food and runs the full cascade explicitly: its reviews,
// its membership in other foods' similar lists and its membership in every
// student's liked/disliked/recommended sets.
func (s *FoodService) Delete(ctx context.Context, vendorID, foodID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var food models.Food
		if err := tx.First(&food, foodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No food with id: %d", foodID))
			}
			return err
		}
		if food.VendorID != vendorID {
			return errs.Forbidden("You are not allowed to manage this food")
		}

		if err := tx.Where("food_id = ?", foodID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM food_similars WHERE food_id = ? OR similar_id = ?", foodID, foodID).Error; err != nil {
			return err
		}
		for _, join := range []string{"user_foods_liked", "user_foods_not_liked", "user_recommend_foods"} {
			if err := tx.Exec("DELETE FROM "+join+" WHERE food_id = ?", foodID).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&food).Error
	})
}

// Like records a student preference; a liked food leaves the disliked set.
func (s *FoodService) Like(ctx context.Context, studentID, foodID uint) error {
	return s.setPreference(ctx, studentID, foodID, "FoodsLiked", "FoodsNotLiked")
}

// Dislike is the mirror of Like.
func (s *FoodService) Dislike(ctx context.Context, studentID, foodID uint) error {
	return s.setPreference(ctx, studentID, foodID, "FoodsNotLiked", "FoodsLiked")
}

func (s *FoodService) setPreference(ctx context.Context, studentID, foodID uint, add, remove string) error {
	food, err := s.Get(ctx, foodID)
	if err != nil {
		return err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, studentID).Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&user).Association(remove).Delete(food); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&user).Association(add).Append(food)
}

// Recommend recomputes and stores the student's recommended foods from the
// categories and tastes of what they like, excluding anything already rated.
func (s *FoodService) Recommend(ctx context.Context, studentID uint) ([]models.Food, error) {
	var user models.User
	err := s.db.WithContext(ctx).
		Preload("FoodsLiked").
		Preload("FoodsNotLiked").
		First(&user, studentID).Error
	if err != nil {
		return nil, err
	}

	categories := map[string]bool{}
	tastes := map[string]bool{}
	rated := map[uint]bool{}
	for _, f := range user.FoodsLiked {
		categories[f.Category] = true
		for _, t := range f.Tastes() {
			tastes[t] = true
		}
		rated[f.ID] = true
	}
	for _, f := range user.FoodsNotLiked {
		rated[f.ID] = true
	}

	var candidates []models.Food
	if err := s.db.WithContext(ctx).Order("weight_rating desc").Limit(50).Find(&candidates).Error; err != nil {
		return nil, err
	}

	var recommended []models.Food
	for _, f := range candidates {
		if rated[f.ID] {
			continue
		}
		match := categories[f.Category]
		for _, t := range f.Tastes() {
			if tastes[t] {
				match = true
				break
			}
		}
		// with no preferences yet, fall back to top-rated foods
		if len(user.FoodsLiked) == 0 {
			match = true
		}
		if match {
			recommended = append(recommended, f)
		}
		if len(recommended) == 10 {
			break
		}
	}

	if err := s.db.WithContext(ctx).Model(&user).Association("RecommendFoods").Replace(recommended); err != nil {
		return nil, err
	}
	return recommended, nil
}

func (s *FoodService) ownedFood(ctx context.Context, vendorID, foodID uint) (*models.Food, error) {
	var food models.Food
	if err := s.db.WithContext(ctx).First(&food, foodID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound(fmt.Sprintf("No food with id: %d", foodID))
		}
		return nil, err
	}
	if food.VendorID != vendorID {
		return nil, errs.Forbidden("You are not allowed to manage this food")
	}
	return &food, nil
}

func (s *FoodService) replaceSimilar(ctx context.Context, food *models.Food, similarIDs []uint) error {
	var similar []models.Food
	if len(similarIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ? AND id <> ?", similarIDs, food.ID).Find(&similar).Error; err != nil {
			return err
		}
	}
	return s.db.WithContext(ctx).Model(food).Association("SimilarOnes").Replace(similar)
}
