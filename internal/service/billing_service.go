package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/prepdeck/prepdeck-backend/internal/model"
	"github.com/prepdeck/prepdeck-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrBillingDisabled = errors.New("billing is not configured")
	ErrBadSignature    = errors.New("payment signature verification failed")
	ErrOrderNotFound   = errors.New("payment order not found")
	ErrOrderNotYours   = errors.New("payment order belongs to another student")
)

// CheckoutOrder is returned to the frontend so it can open the Razorpay
// checkout widget.
type CheckoutOrder struct {
	OrderID     string `json:"order_id"`
	AmountPaise int64  `json:"amount_paise"`
	Currency    string `json:"currency"`
	KeyID       string `json:"key_id"`
	PlanCode    string `json:"plan_code"`
}

// BillingService sells premium plans through Razorpay. The flow is the
// standard two-step checkout: create an order server-side, then verify the
// HMAC signature Razorpay attaches to the client callback before activating
// the plan.
type BillingService struct {
	client      *razorpay.Client
	keyID       string
	keySecret   string
	planRepo    *repository.PlanRepository
	studentRepo *repository.StudentRepository
	log         zerolog.Logger
}

// NewBillingService creates a new BillingService. Empty credentials disable
// billing; purchase endpoints then answer with a configuration error.
func NewBillingService(
	keyID, keySecret string,
	planRepo *repository.PlanRepository,
	studentRepo *repository.StudentRepository,
	log zerolog.Logger,
) *BillingService {
	s := &BillingService{
		keyID:       keyID,
		keySecret:   keySecret,
		planRepo:    planRepo,
		studentRepo: studentRepo,
		log:         log.With().Str("component", "billing_service").Logger(),
	}
	if keyID != "" && keySecret != "" {
		s.client = razorpay.NewClient(keyID, keySecret)
	}
	return s
}

// Enabled reports whether Razorpay credentials were configured.
func (s *BillingService) Enabled() bool { return s.client != nil }

// Plans returns the purchasable tiers.
func (s *BillingService) Plans(ctx context.Context) ([]model.Plan, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []model.Plan{}
	}
	return plans, nil
}

// CreateOrder opens a Razorpay order for the plan and records it locally.
func (s *BillingService) CreateOrder(ctx context.Context, studentID int, planCode string) (*CheckoutOrder, error) {
	if s.client == nil {
		return nil, ErrBillingDisabled
	}

	plan, err := s.planRepo.GetByCode(ctx, planCode)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	data := map[string]interface{}{
		"amount":   plan.PricePaise,
		"currency": "INR",
		"notes": map[string]interface{}{
			"student_id": studentID,
			"plan_code":  plan.Code,
		},
	}
	body, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order create: %w", err)
	}

	providerOrderID, ok := body["id"].(string)
	if !ok || providerOrderID == "" {
		return nil, errors.New("razorpay order response missing id")
	}

	order := &model.PaymentOrder{
		StudentID:       studentID,
		PlanID:          plan.ID,
		ProviderOrderID: providerOrderID,
		AmountPaise:     plan.PricePaise,
		Status:          model.PaymentOrderCreated,
	}
	if err := s.planRepo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("record order: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("plan", plan.Code).
		Str("order_id", providerOrderID).
		Msg("Payment order created")

	return &CheckoutOrder{
		OrderID:     providerOrderID,
		AmountPaise: plan.PricePaise,
		Currency:    "INR",
		KeyID:       s.keyID,
		PlanCode:    plan.Code,
	}, nil
}

// VerifyPayment checks the checkout callback signature and, when valid,
// marks the order paid and activates the plan on the student's account.
func (s *BillingService) VerifyPayment(ctx context.Context, studentID int, req *model.VerifyPaymentRequest) (*model.Student, error) {
	if s.client == nil {
		return nil, ErrBillingDisabled
	}

	order, err := s.planRepo.GetOrderByProviderID(ctx, req.OrderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}
	if order.StudentID != studentID {
		return nil, ErrOrderNotYours
	}

	if !s.validSignature(req.OrderID, req.PaymentID, req.Signature) {
		_ = s.planRepo.UpdateOrderStatus(ctx, order.ID, model.PaymentOrderFailed)
		s.log.Warn().
			Int("student_id", studentID).
			Str("order_id", req.OrderID).
			Msg("Payment signature rejected")
		return nil, ErrBadSignature
	}

	if order.Status == model.PaymentOrderPaid {
		// Callback replay: the plan is already active.
		return s.studentRepo.GetByID(ctx, studentID)
	}

	if err := s.planRepo.UpdateOrderStatus(ctx, order.ID, model.PaymentOrderPaid); err != nil {
		return nil, fmt.Errorf("mark order paid: %w", err)
	}

	plan, err := s.planByID(ctx, order.PlanID)
	if err != nil {
		return nil, err
	}

	expires := time.Now().AddDate(0, 0, plan.DurationDays)
	if err := s.studentRepo.UpdatePlan(ctx, studentID, plan.Code, expires); err != nil {
		return nil, fmt.Errorf("activate plan: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("plan", plan.Code).
		Time("expires", expires).
		Msg("Plan activated")

	return s.studentRepo.GetByID(ctx, studentID)
}

// validSignature checks Razorpay's checkout signature: HMAC-SHA256 of
// "order_id|payment_id" keyed with the API secret, hex encoded.
func (s *BillingService) validSignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *BillingService) planByID(ctx context.Context, id int) (*model.Plan, error) {
	plans, err := s.planRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].ID == id {
			return &plans[i], nil
		}
	}
	return nil, fmt.Errorf("plan %d not found", id)
}
