package orders

import "time"

type CreateOrderRequest struct {
	CustomerName  string     `json:"customer_name" validate:"required,max=200"`
	CustomerPhone string     `json:"customer_phone" validate:"max=32"`
	TotalAmount   float64    `json:"total_amount" validate:"gte=0"`
	OrderDate     *time.Time `json:"order_date,omitempty"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

type UpdateOrderRequest struct {
	CustomerName  *string    `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	CustomerPhone *string    `json:"customer_phone,omitempty" validate:"omitempty,max=32"`
	TotalAmount   *float64   `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	Notes         *string    `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=1000"`
}
