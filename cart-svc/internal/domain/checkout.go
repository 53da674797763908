package domain

import (
	"encoding/json"
	"time"
)

type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentPayPal PaymentMethod = "paypal"
)

// CheckoutForm is what the customer filled in on the checkout page.
type CheckoutForm struct {
	CustomerName  string        `json:"customerName"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	DeliveryType  DeliveryType  `json:"deliveryType"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	CardNumber    string        `json:"cardNumber,omitempty"`
}

// OrderPayload is the body of POST /cart/checkout.
type OrderPayload struct {
	UserID         string            `json:"userId,omitempty"`
	RestaurantID   string            `json:"restaurantId"`
	CustomerName   string            `json:"customerName"`
	Phone          string            `json:"phone"`
	Address        string            `json:"address"`
	DeliveryType   DeliveryType      `json:"deliveryType"`
	PaymentMethod  PaymentMethod     `json:"paymentMethod"`
	PaymentDetails map[string]string `json:"paymentDetails"`
}

type CheckoutOutcome string

const (
	OutcomeSuccess         CheckoutOutcome = "success"
	OutcomeBackendRejected CheckoutOutcome = "backend_rejected"
	OutcomeNetworkError    CheckoutOutcome = "network_error"
)

// CheckoutResult is the tagged outcome of a submission that passed validation.
type CheckoutResult struct {
	Outcome      CheckoutOutcome `json:"outcome"`
	StatusCode   int             `json:"statusCode,omitempty"`
	Confirmation json.RawMessage `json:"confirmation,omitempty"`
	OrderID      string          `json:"orderId,omitempty"`
	Payload      OrderPayload    `json:"payload"`
	GrandTotal   float64         `json:"grandTotal"`
	PaymentErr   error           `json:"-"`
	Err          error           `json:"-"`
}

// LastOrder is what the confirmation page renders after navigation.
type LastOrder struct {
	OrderID      string          `json:"orderId,omitempty"`
	Outcome      CheckoutOutcome `json:"outcome"`
	Demo         bool            `json:"demo"`
	Payload      OrderPayload    `json:"payload"`
	Confirmation json.RawMessage `json:"confirmation,omitempty"`
	GrandTotal   float64         `json:"grandTotal"`
	PlacedAt     time.Time       `json:"placedAt"`
}

// StorageEvent announces a write to a session key so other instances can
// refresh their subscribers.
type StorageEvent struct {
	Origin    string    `json:"origin"`
	Session   string    `json:"session"`
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}
