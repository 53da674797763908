package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"liefrik/cart-svc/internal/backend"
	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/pricing"
	"liefrik/cart-svc/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const ConfirmationRoute = "/order-confirmation"

type Config struct {
	// DemoFallback presents a rejected checkout as a placed demo order and
	// clears the cart.
	DemoFallback bool
	Pricing      pricing.Config
}

type Handler struct {
	Carts         *service.CartStore
	Configurators *service.Configurators
	Checkout      *service.CheckoutService
	Identities    *service.IdentityResolver
	Backend       service.Backend
	QR            service.QRGenerator
	Config        Config
	Logger        *zap.Logger
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.healthCheck).Methods("GET")

	r.HandleFunc("/api/sessions", h.createSession).Methods("POST")

	s := r.PathPrefix("/api/sessions/{sid}").Subrouter()
	s.HandleFunc("/cart", h.getCart).Methods("GET")
	s.HandleFunc("/cart", h.clearCart).Methods("DELETE")
	s.HandleFunc("/cart/lines/{index}", h.updateLine).Methods("PATCH")
	s.HandleFunc("/cart/lines/{index}", h.removeLine).Methods("DELETE")
	s.HandleFunc("/cart/stream", h.cartStream).Methods("GET")

	s.HandleFunc("/configurator", h.openConfigurator).Methods("POST")
	s.HandleFunc("/configurator", h.getConfigurator).Methods("GET")
	s.HandleFunc("/configurator", h.updateConfigurator).Methods("PATCH")
	s.HandleFunc("/configurator", h.cancelConfigurator).Methods("DELETE")
	s.HandleFunc("/configurator/confirm", h.confirmConfigurator).Methods("POST")

	s.HandleFunc("/checkout", h.checkout).Methods("POST")
	s.HandleFunc("/orders/last", h.getLastOrder).Methods("GET")

	s.HandleFunc("/locale", h.getLocale).Methods("GET")
	s.HandleFunc("/locale", h.putLocale).Methods("PUT")
	s.HandleFunc("/auth", h.putAuth).Methods("PUT")
	s.HandleFunc("/auth", h.deleteAuth).Methods("DELETE")
	s.HandleFunc("/server-cart", h.getServerCart).Methods("GET")

	r.HandleFunc("/api/orders/{id}/qrcode", h.getOrderQRCode).Methods("GET")
}

type cartResponse struct {
	Lines   []domain.CartLine `json:"lines"`
	Summary pricing.Summary   `json:"summary"`
}

type linePatch struct {
	Delta *int `json:"delta"`
	Qty   *int `json:"qty"`
}

type configuratorPatch struct {
	Size        *string `json:"size"`
	ToggleAddOn *string `json:"toggleAddOn"`
	Qty         *int    `json:"qty"`
	Step        string  `json:"step"`
}

type checkoutResponse struct {
	Outcome      domain.CheckoutOutcome `json:"outcome"`
	Message      string                 `json:"message"`
	Redirect     string                 `json:"redirect,omitempty"`
	Demo         bool                   `json:"demo,omitempty"`
	OrderID      string                 `json:"orderId,omitempty"`
	QRCode       string                 `json:"qrCode,omitempty"`
	Confirmation json.RawMessage        `json:"confirmation,omitempty"`
	StatusCode   int                    `json:"statusCode,omitempty"`
	GrandTotal   float64                `json:"grandTotal"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "cart-svc",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": uuid.NewString()})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(h.Carts.Read(r.Context(), sid)))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	h.Carts.Clear(r.Context(), sid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "Invalid line index", http.StatusBadRequest)
		return
	}

	var patch linePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var lines []domain.CartLine
	switch {
	case patch.Qty != nil:
		lines, err = h.Carts.SetQty(r.Context(), sid, index, *patch.Qty)
	case patch.Delta != nil:
		lines, err = h.Carts.ChangeQty(r.Context(), sid, index, *patch.Delta)
	default:
		http.Error(w, "Either delta or qty is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(lines))
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "Invalid line index", http.StatusBadRequest)
		return
	}
	lines, err := h.Carts.Remove(r.Context(), sid, index)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.cartView(lines))
}

func (h *Handler) openConfigurator(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var item domain.MenuItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	state, err := h.Configurators.For(sid).Open(item)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) getConfigurator(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Configurators.For(sid).State())
}

func (h *Handler) updateConfigurator(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var patch configuratorPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	update := service.ConfiguratorUpdate{
		Size:        patch.Size,
		ToggleAddOn: patch.ToggleAddOn,
		Qty:         patch.Qty,
	}
	switch patch.Step {
	case "":
	case "increment":
		update.Step = 1
	case "decrement":
		update.Step = -1
	default:
		http.Error(w, "step must be increment or decrement", http.StatusBadRequest)
		return
	}

	state, err := h.Configurators.For(sid).Apply(update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) cancelConfigurator(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.Configurators.For(sid).Cancel(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirmConfigurator(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	line, task, err := h.Configurators.For(sid).Confirm(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	serverCart := "pending"
	if task.Skipped() {
		serverCart = "skipped"
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"line":       line,
		"cart":       h.cartView(h.Carts.Read(r.Context(), sid)),
		"serverCart": serverCart,
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var form domain.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.Checkout.Submit(r.Context(), sid, form)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := checkoutResponse{
		Outcome:    result.Outcome,
		OrderID:    result.OrderID,
		StatusCode: result.StatusCode,
		GrandTotal: result.GrandTotal,
	}

	switch {
	case result.Outcome == domain.OutcomeSuccess:
		response.Message = "order placed"
		response.Confirmation = result.Confirmation
	case result.Outcome == domain.OutcomeBackendRejected && h.Config.DemoFallback:
		h.Carts.Clear(r.Context(), sid)
		response.Message = "order placed (demo mode)"
		response.Demo = true
	case result.Outcome == domain.OutcomeBackendRejected:
		response.Message = "the order service rejected the order"
		writeJSON(w, http.StatusBadGateway, response)
		return
	default:
		response.Message = "could not reach the order service, please try again"
		writeJSON(w, http.StatusBadGateway, response)
		return
	}

	response.Redirect = ConfirmationRoute
	if response.OrderID != "" {
		response.QRCode = "/api/orders/" + url.PathEscape(response.OrderID) + "/qrcode"
	}

	h.Carts.SaveLastOrder(r.Context(), sid, domain.LastOrder{
		OrderID:      result.OrderID,
		Outcome:      result.Outcome,
		Demo:         response.Demo,
		Payload:      result.Payload,
		Confirmation: result.Confirmation,
		GrandTotal:   result.GrandTotal,
		PlacedAt:     time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getLastOrder(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	order, found := h.Carts.LastOrder(r.Context(), sid)
	if !found {
		http.Error(w, "No order placed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) getLocale(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Carts.Locale(r.Context(), sid))
}

func (h *Handler) putLocale(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var pref domain.LocalePreference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Carts.SetLocale(r.Context(), sid, pref); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// putAuth stores the request body as the session token, either a raw JWT or
// a JSON object carrying one.
func (h *Handler) putAuth(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 16<<10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	identity, err := h.Identities.SetToken(r.Context(), sid, string(body))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": identity.UserID,
		"known":  identity.Known(),
	})
}

func (h *Handler) deleteAuth(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.Identities.Clear(r.Context(), sid); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getServerCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	identity := h.Identities.Resolve(r.Context(), sid)
	if !identity.Known() {
		http.Error(w, "Session is not logged in", http.StatusUnauthorized)
		return
	}

	snapshot, err := h.Backend.GetCart(r.Context(), identity.Token, identity.UserID)
	if err != nil {
		h.Logger.Warn("server cart fetch failed", zap.String("session", sid), zap.Error(err))
		http.Error(w, "Failed to fetch server cart", http.StatusBadGateway)
		return
	}
	if snapshot == nil {
		snapshot = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(snapshot)
}

func (h *Handler) getOrderQRCode(w http.ResponseWriter, r *http.Request) {
	orderID, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}
	orderID = strings.TrimSpace(orderID)
	qrCode, err := h.QR.Generate(orderID)
	if err != nil {
		h.Logger.Error("qr code generation failed", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(qrCode)
}

func (h *Handler) cartView(lines []domain.CartLine) cartResponse {
	return cartResponse{Lines: lines, Summary: pricing.Aggregate(lines, h.Config.Pricing)}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
	case errors.Is(err, service.ErrLineNotFound):
		http.Error(w, "Cart line not found", http.StatusNotFound)
	case errors.Is(err, service.ErrConfiguratorClosed):
		http.Error(w, "Configurator is not open", http.StatusConflict)
	case errors.As(err, &statusErr):
		http.Error(w, statusErr.Error(), http.StatusBadGateway)
	default:
		h.Logger.Error("request failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// sessionID rejects anything that is not a session id handed out by
// POST /api/sessions.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sid := mux.Vars(r)["sid"]
	if _, err := uuid.Parse(sid); err != nil {
		http.Error(w, "Invalid session id", http.StatusBadRequest)
		return "", false
	}
	return sid, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
