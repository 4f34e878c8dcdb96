package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/TuanDao2002/rmit-what-to-eat/errs"
	"github.com/TuanDao2002/rmit-what-to-eat/models"
	"github.com/TuanDao2002/rmit-what-to-eat/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderService struct {
	db     *gorm.DB
	hub    *Hub
	pay    utils.PaymentGateway
	logger *slog.Logger
}

func NewOrderService(db *gorm.DB, hub *Hub, pay utils.PaymentGateway, logger *slog.Logger) *OrderService {
	return &OrderService{db: db, hub: hub, pay: pay, logger: logger}
}

// OpenOrderWindow lets a vendor start accepting orders on their own food.
func (s *OrderService) OpenOrderWindow(ctx context.Context, vendorID, foodID uint) (*models.Food, error) {
	return s.setAccepting(ctx, vendorID, foodID, true)
}

// CloseOrderWindow stops new orders; already-placed orders are unaffected.
func (s *OrderService) CloseOrderWindow(ctx context.Context, vendorID, foodID uint) (*models.Food, error) {
	return s.setAccepting(ctx, vendorID, foodID, false)
}

func (s *OrderService) setAccepting(ctx context.Context, vendorID, foodID uint, accepting bool) (*models.Food, error) {
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
	food.AcceptingOrders = accepting
	if err := s.db.WithContext(ctx).Save(&food).Error; err != nil {
		return nil, err
	}
	return &food, nil
}

// Place creates a student order against an open window. The food row is
// locked for the quantity check and decrement; the vendor is notified over
// the realtime channel.
func (s *OrderService) Place(ctx context.Context, studentID, foodID uint, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, errs.BadRequest("Quantity must be positive")
	}

	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var food models.Food
		err := tx.First(&food, foodID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No food with id: %d", foodID))
			}
			return err
		}
		if !food.AcceptingOrders {
			return errs.BadRequest("This food is not accepting orders")
		}

		var pending int64
		err = tx.Model(&models.Order{}).
			Where("food_id = ? AND student_id = ? AND status = ?", foodID, studentID, models.OrderPlaced).
			Count(&pending).Error
		if err != nil {
			return err
		}
		if pending > 0 {
			return errs.BadRequest("You already have a pending order for this food")
		}

		// guarded decrement, the storage layer arbitrates concurrent orders
		res := tx.Model(&models.Food{}).
			Where("id = ? AND quantity >= ?", foodID, quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.BadRequest("Not enough quantity of this food left")
		}

		order = &models.Order{
			FoodID:        foodID,
			StudentID:     studentID,
			VendorID:      food.VendorID,
			Quantity:      quantity,
			UnitPrice:     food.Price,
			Total:         food.Price * float64(quantity),
			Status:        models.OrderPlaced,
			PaymentStatus: models.PaymentPending,
			MomoOrderID:   uuid.NewString(),
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}

	if s.pay != nil {
		payURL, err := s.pay.CreatePayment(ctx, order.MomoOrderID, uuid.NewString(), int64(order.Total),
			fmt.Sprintf("Order #%d", order.ID))
		if err != nil {
			// the order stands; payment can be retried through the gateway
			s.logger.Warn("momo create payment failed", slog.Uint64("orderId", uint64(order.ID)), slog.String("error", err.Error()))
		} else {
			order.PayURL = payURL
			if err := s.db.WithContext(ctx).Model(order).Update("pay_url", payURL).Error; err != nil {
				return nil, err
			}
		}
	}

	s.hub.Notify(order.VendorID, "order.placed", order)
	return order, nil
}

// ListForUser returns the caller's orders: their own for students, orders on
// their foods for vendors.
func (s *OrderService) ListForUser(ctx context.Context, user utils.TokenUser) ([]models.Order, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Order("created_at desc")
	switch user.Role {
	case models.RoleStudent:
		query = query.Where("student_id = ?", user.UserID)
	case models.RoleVendor:
		query = query.Where("vendor_id = ?", user.UserID)
	default:
		return nil, errs.Forbidden("Unauthorized to access this route")
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Fulfill moves a placed order to fulfilled and notifies the student.
func (s *OrderService) Fulfill(ctx context.Context, vendorID, orderID uint) (*models.Order, error) {
	return s.transition(ctx, vendorID, orderID, models.OrderFulfilled, "order.fulfilled")
}

// Remove cancels a placed order, restores the food quantity and notifies
// the student.
func (s *OrderService) Remove(ctx context.Context, vendorID, orderID uint) (*models.Order, error) {
	return s.transition(ctx, vendorID, orderID, models.OrderRemoved, "order.removed")
}

func (s *OrderService) transition(ctx context.Context, vendorID, orderID uint, to models.OrderStatus, event string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&order, orderID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound(fmt.Sprintf("No order with id: %d", orderID))
			}
			return err
		}
		if order.VendorID != vendorID {
			return errs.Forbidden("You are not allowed to manage this order")
		}
		if err := CanTransition(order.Status, to, models.RoleVendor); err != nil {
			return err
		}

		// guarded update so a concurrent transition cannot double-apply
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderPlaced).
			Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.BadRequest(fmt.Sprintf("cannot change order from %s to %s", order.Status, to))
		}
		order.Status = to
		if to == models.OrderRemoved {
			return tx.Model(&models.Food{}).
				Where("id = ?", order.FoodID).
				UpdateColumn("quantity", gorm.Expr("quantity + ?", order.Quantity)).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.hub.Notify(order.StudentID, event, &order)
	return &order, nil
}

// HandleMomoCallback processes a payment gateway callback. The signature is
// verified before anything is trusted and duplicate deliveries are no-ops
// keyed by the momo order id.
func (s *OrderService) HandleMomoCallback(ctx context.Context, params url.Values) error {
	if s.pay == nil {
		return errs.BadRequest("payment gateway is not configured")
	}
	if err := s.pay.VerifyCallback(params); err != nil {
		return err
	}
	momoOrderID := params.Get("orderId")
	if momoOrderID == "" {
		return errs.BadRequest("missing orderId")
	}

	var order models.Order
	var alreadyPaid bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("momo_order_id = ?", momoOrderID).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("No order for this payment")
			}
			return err
		}
		if order.PaymentStatus == models.PaymentPaid {
			alreadyPaid = true
			return nil
		}

		if params.Get("resultCode") == "0" {
			order.PaymentStatus = models.PaymentPaid
			order.TransactionID = params.Get("transId")
		} else {
			order.PaymentStatus = models.PaymentFailed
		}
		return tx.Save(&order).Error
	})
	if err != nil {
		return err
	}

	if !alreadyPaid && order.PaymentStatus == models.PaymentPaid {
		s.hub.Notify(order.StudentID, "payment.confirmed", &order)
	}
	return nil
}
