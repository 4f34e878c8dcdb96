package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"gorm.io/gorm"
)

// bayesianWeight is the prior weight (in reviews) pulling a food's weighted
// rating towards the catalog-wide mean until it has enough reviews of its own.
const bayesianWeight = 5.0

type ReviewService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewReviewService(db *gorm.DB, logger *slog.Logger) *ReviewService {
	return &ReviewService{db: db, logger: logger}
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return errs.BadRequest("Rating must be from 1 to 5")
	}
	return nil
}

// Create adds a student's review, one per food per student, and refreshes
// the food's rating aggregates in the same transaction.
func (s *ReviewService) Create(ctx context.Context, studentID, foodID uint, rating int, comment string) (*models.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	review := &models.Review{
		FoodID:  foodID,
		UserID:  studentID,
		Rating:  rating,
		Comment: utils.Sanitize(comment),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var food models.Food
		if err := tx.First(&food, foodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No food with id: %d", foodID))
			}
			return err
		}
		if err := tx.Create(review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.BadRequest("You have already reviewed this food")
			}
			return err
		}
		return s.recalcAggregates(tx, foodID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, studentID, reviewID uint, rating int, comment string) (*models.Review, error) {
	if err := validateRating(rating); err != nil {
		return nil, err
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No review with id: %d", reviewID))
			}
			return err
		}
		if review.UserID != studentID {
			return errs.Forbidden("You are not allowed to manage this review")
		}
		review.Rating = rating
		review.Comment = utils.Sanitize(comment)
		if err := tx.Save(&review).Error; err != nil {
			return err
		}
		return s.recalcAggregates(tx, review.FoodID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) Delete(ctx context.Context, studentID, reviewID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var review models.Review
		if err := tx.First(&review, reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No review with id: %d", reviewID))
			}
			return err
		}
		if review.UserID != studentID {
			return errs.Forbidden("You are not allowed to manage this review")
		}
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return s.recalcAggregates(tx, review.FoodID)
	})
}

func (s *ReviewService) ListForFood(ctx context.Context, foodID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.WithContext(ctx).
		Where("food_id = ?", foodID).
		Order("created_at desc").
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// recalcAggregates recomputes numOfReviews, averageRating and the
// bayesian-weighted rating used for ranking.
func (s *ReviewService) recalcAggregates(tx *gorm.DB, foodID uint) error {
	var stats struct {
		Count int64
		Avg   float64
	}
	err := tx.Model(&models.Review{}).
		Where("food_id = ?", foodID).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as avg").
		Scan(&stats).Error
	if err != nil {
		return err
	}

	var globalAvg float64
	err = tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&globalAvg).Error
	if err != nil {
		return err
	}

	weight := 0.0
	if stats.Count > 0 {
		v := float64(stats.Count)
		weight = (v/(v+bayesianWeight))*stats.Avg + (bayesianWeight/(v+bayesianWeight))*globalAvg
	}

	return tx.Model(&models.Food{}).
		Where("id = ?", foodID).
		Updates(map[string]any{
			"num_of_reviews": stats.Count,
			"average_rating": stats.Avg,
			"weight_rating":  weight,
		}).Error
}
