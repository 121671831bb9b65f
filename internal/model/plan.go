package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan codes. Free is implicit for every account.
const (
	PlanCodeFree    = "FREE"
	PlanCodeMonthly = "MONTHLY"
	PlanCodeYearly  = "YEARLY"
)

// Plan represents a purchasable subscription tier.
type Plan struct {
	ID           int       `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	PricePaise   int64     `json:"price_paise"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}

// PaymentOrderStatus enumerates payment order states.
type PaymentOrderStatus string

const (
	PaymentOrderCreated PaymentOrderStatus = "CREATED"
	PaymentOrderPaid    PaymentOrderStatus = "PAID"
	PaymentOrderFailed  PaymentOrderStatus = "FAILED"
)

// PaymentOrder tracks one Razorpay order created for a plan purchase.
type PaymentOrder struct {
	ID              uuid.UUID          `json:"id"`
	StudentID       int                `json:"student_id"`
	PlanID          int                `json:"plan_id"`
	ProviderOrderID string             `json:"provider_order_id"`
	AmountPaise     int64              `json:"amount_paise"`
	Status          PaymentOrderStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// CreateOrderRequest is the payload for starting a plan purchase.
type CreateOrderRequest struct {
	PlanCode string `json:"plan_code" binding:"required,oneof=MONTHLY YEARLY"`
}

// VerifyPaymentRequest carries the checkout callback fields Razorpay signs.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}
