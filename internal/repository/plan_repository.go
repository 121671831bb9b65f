package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prepdeck/prepdeck-backend/internal/model"
)

// PlanRepository handles subscription plan and payment order data access.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// List retrieves all purchasable plans.
func (r *PlanRepository) List(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, price_paise, duration_days, created_at
		 FROM plans ORDER BY price_paise ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.PricePaise, &p.DurationDays, &p.CreatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetByCode retrieves a plan by its code.
func (r *PlanRepository) GetByCode(ctx context.Context, code string) (*model.Plan, error) {
	p := &model.Plan{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, price_paise, duration_days, created_at
		 FROM plans WHERE code = $1`, code,
	).Scan(&p.ID, &p.Code, &p.Name, &p.PricePaise, &p.DurationDays, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateOrder inserts a new payment order in CREATED state.
func (r *PlanRepository) CreateOrder(ctx context.Context, o *model.PaymentOrder) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO payment_orders (student_id, plan_id, provider_order_id, amount_paise, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		o.StudentID, o.PlanID, o.ProviderOrderID, o.AmountPaise, model.PaymentOrderCreated,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

// GetOrderByProviderID retrieves an order by the Razorpay order identifier.
func (r *PlanRepository) GetOrderByProviderID(ctx context.Context, providerOrderID string) (*model.PaymentOrder, error) {
	o := &model.PaymentOrder{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, plan_id, provider_order_id, amount_paise, status, created_at, updated_at
		 FROM payment_orders WHERE provider_order_id = $1`, providerOrderID,
	).Scan(&o.ID, &o.StudentID, &o.PlanID, &o.ProviderOrderID, &o.AmountPaise, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrderStatus transitions a payment order's state.
func (r *PlanRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status model.PaymentOrderStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	return err
}
