package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"liefrik/cart-svc/internal/backend"
	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/pricing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService struct {
	store      *CartStore
	backend    Backend
	identities *IdentityResolver
	pricing    pricing.Config
	logger     *zap.Logger
}

func NewCheckoutService(store *CartStore, backend Backend, identities *IdentityResolver, cfg pricing.Config, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		store:      store,
		backend:    backend,
		identities: identities,
		pricing:    cfg,
		logger:     logger,
	}
}

// Validate checks the order before anything leaves the service. The first
// failing rule wins.
func (s *CheckoutService) Validate(lines []domain.CartLine, form domain.CheckoutForm) error {
	if len(lines) == 0 {
		return invalid("cart", ErrEmptyCart)
	}
	if deliveryType(form) == domain.DeliveryTypeDelivery && strings.TrimSpace(form.Address) == "" {
		return invalid("address", ErrAddressRequired)
	}
	if strings.TrimSpace(form.CustomerName) == "" {
		return invalid("customerName", ErrNameRequired)
	}
	if strings.TrimSpace(form.Phone) == "" {
		return invalid("phone", ErrPhoneRequired)
	}
	return nil
}

func (s *CheckoutService) ChoosePayment(ctx context.Context, identity domain.Identity, method domain.PaymentMethod) *Task {
	if !identity.Known() {
		return SkippedTask("choose_payment")
	}
	return StartTask(ctx, s.logger, "choose_payment", func(ctx context.Context) error {
		return s.backend.ChoosePayment(ctx, identity.Token, identity.UserID, method)
	})
}

// BuildPayload sends only the first line's restaurant; the backend takes one
// restaurant per order.
func (s *CheckoutService) BuildPayload(identity domain.Identity, lines []domain.CartLine, form domain.CheckoutForm) domain.OrderPayload {
	payload := domain.OrderPayload{
		UserID:         identity.UserID,
		CustomerName:   strings.TrimSpace(form.CustomerName),
		Phone:          strings.TrimSpace(form.Phone),
		Address:        strings.TrimSpace(form.Address),
		DeliveryType:   deliveryType(form),
		PaymentMethod:  paymentMethod(form),
		PaymentDetails: map[string]string{},
	}
	if len(lines) > 0 {
		payload.RestaurantID = lines[0].RestaurantID
	}

	switch payload.PaymentMethod {
	case domain.PaymentCard:
		payload.PaymentDetails["cardNumber"] = form.CardNumber
	case domain.PaymentPayPal:
		payload.PaymentDetails["transactionId"] = "PAYPAL-" + uuid.NewString()
	}
	return payload
}

// Submit places the session's order. The returned error is only ever a
// validation error; backend and transport failures are reported through the
// result's Outcome. Only a successful order clears the cart here.
func (s *CheckoutService) Submit(ctx context.Context, session string, form domain.CheckoutForm) (domain.CheckoutResult, error) {
	lines := s.store.Read(ctx, session)
	if err := s.Validate(lines, form); err != nil {
		return domain.CheckoutResult{}, err
	}

	identity := s.identities.Resolve(ctx, session)

	result := domain.CheckoutResult{
		GrandTotal: pricing.Aggregate(lines, s.pricing).GrandTotal,
	}
	if err := s.ChoosePayment(ctx, identity, paymentMethod(form)).Wait(ctx); err != nil && !errors.Is(err, ErrTaskSkipped) {
		result.PaymentErr = err
	}

	result.Payload = s.BuildPayload(identity, lines, form)

	confirmation, err := s.backend.Checkout(ctx, identity.Token, result.Payload)
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &statusErr):
		result.Outcome = domain.OutcomeBackendRejected
		result.StatusCode = statusErr.Code
		result.Err = err
		s.logger.Warn("checkout rejected by backend",
			zap.String("session", session),
			zap.Int("status", statusErr.Code),
			zap.String("body", statusErr.Body),
		)
	case err != nil:
		result.Outcome = domain.OutcomeNetworkError
		result.Err = err
		s.logger.Error("checkout request failed", zap.String("session", session), zap.Error(err))
	default:
		result.Outcome = domain.OutcomeSuccess
		result.Confirmation = confirmation
		result.OrderID = orderID(confirmation)
		s.store.Clear(ctx, session)
		s.logger.Info("order placed",
			zap.String("session", session),
			zap.String("order_id", result.OrderID),
			zap.Float64("grand_total", result.GrandTotal),
		)
	}
	return result, nil
}

func deliveryType(form domain.CheckoutForm) domain.DeliveryType {
	if form.DeliveryType == "" {
		return domain.DeliveryTypeDelivery
	}
	return form.DeliveryType
}

func paymentMethod(form domain.CheckoutForm) domain.PaymentMethod {
	if form.PaymentMethod == "" {
		return domain.PaymentCash
	}
	return form.PaymentMethod
}

// orderID pulls the order reference out of a confirmation, which may be the
// order itself or wrap it under "order".
func orderID(confirmation json.RawMessage) string {
	var obj map[string]any
	if err := json.Unmarshal(confirmation, &obj); err != nil {
		return ""
	}
	if nested, ok := obj["order"].(map[string]any); ok {
		obj = nested
	}
	for _, key := range []string{"orderId", "id", "_id"} {
		switch v := obj[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
