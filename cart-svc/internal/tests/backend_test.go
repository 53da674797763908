package tests

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"liefrik/cart-svc/internal/backend"
	"liefrik/cart-svc/internal/domain"
	"liefrik/cart-svc/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func jsonResponse(status int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

// requestBody reads a copy of the body so several matchers can inspect the
// same request.
func requestBody(req *http.Request) []byte {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil
	}
	data, _ := io.ReadAll(body)
	return data
}

func TestBackendClient_Checkout(t *testing.T) {
	payload := domain.OrderPayload{
		RestaurantID:   "r-1",
		CustomerName:   "Ada",
		Phone:          "123",
		DeliveryType:   domain.DeliveryTypePickup,
		PaymentMethod:  domain.PaymentCash,
		PaymentDetails: map[string]string{},
	}

	tests := []struct {
		name         string
		prepareMocks func(client *mocks.HTTPClient)
		expectedBody string
		expectedCode int
		transportErr bool
	}{
		{
			name: "success",
			prepareMocks: func(client *mocks.HTTPClient) {
				client.On("Do", mock.MatchedBy(func(req *http.Request) bool {
					body := requestBody(req)
					return req.Method == http.MethodPost &&
						req.URL.String() == "http://backend.test/api/cart/checkout" &&
						req.Header.Get("Authorization") == "Bearer tok" &&
						req.Header.Get("Content-Type") == "application/json" &&
						strings.Contains(string(body), `"restaurantId":"r-1"`)
				})).Return(jsonResponse(http.StatusCreated, `{"id":"o-1"}`), nil).Once()
			},
			expectedBody: `{"id":"o-1"}`,
		},
		{
			name: "rejected",
			prepareMocks: func(client *mocks.HTTPClient) {
				client.On("Do", mock.Anything).Return(jsonResponse(http.StatusBadRequest, `{"message":"restaurant closed"}`), nil).Once()
			},
			expectedCode: http.StatusBadRequest,
		},
		{
			name: "transport failure",
			prepareMocks: func(client *mocks.HTTPClient) {
				client.On("Do", mock.Anything).Return(nil, errors.New("connection reset")).Once()
			},
			transportErr: true,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			httpClient := mocks.NewHTTPClient(t)
			testCase.prepareMocks(httpClient)
			client := backend.NewClient(backend.Config{BaseURL: "http://backend.test/api/"}, httpClient)

			confirmation, err := client.Checkout(context.Background(), "tok", payload)

			var statusErr *backend.StatusError
			switch {
			case testCase.expectedCode != 0:
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, testCase.expectedCode, statusErr.Code)
				assert.Contains(t, statusErr.Body, "restaurant closed")
			case testCase.transportErr:
				require.Error(t, err)
				assert.False(t, errors.As(err, &statusErr))
			default:
				require.NoError(t, err)
				assert.JSONEq(t, testCase.expectedBody, string(confirmation))
			}
		})
	}
}

func TestBackendClient_SideCalls(t *testing.T) {
	httpClient := mocks.NewHTTPClient(t)
	client := backend.NewClient(backend.Config{BaseURL: "http://backend.test"}, httpClient)
	ctx := context.Background()

	httpClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		var body map[string]interface{}
		json.Unmarshal(requestBody(req), &body)
		return req.URL.Path == "/cart/add" && body["userId"] == "u-1" && body["menuItemId"] == "m-1" && body["quantity"] == float64(2)
	})).Return(jsonResponse(http.StatusOK, `{}`), nil).Once()

	httpClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		var body map[string]string
		json.Unmarshal(requestBody(req), &body)
		return req.URL.Path == "/cart/choose-payment" && body["paymentMethod"] == "paypal"
	})).Return(jsonResponse(http.StatusNoContent, ``), nil).Once()

	httpClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet && req.URL.Path == "/cart/u-1" && req.Header.Get("Authorization") == ""
	})).Return(jsonResponse(http.StatusOK, `{"items":[]}`), nil).Once()

	require.NoError(t, client.AddToCart(ctx, "tok", domain.ServerCartItem{UserID: "u-1", MenuItemID: "m-1", Quantity: 2}))
	require.NoError(t, client.ChoosePayment(ctx, "tok", "u-1", domain.PaymentPayPal))

	snapshot, err := client.GetCart(ctx, "", "u-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(snapshot))
}

func TestBackendClient_ResponseSizeLimit(t *testing.T) {
	httpClient := mocks.NewHTTPClient(t)
	client := backend.NewClient(backend.Config{BaseURL: "http://backend.test"}, httpClient)

	oversized := `{"id":"` + strings.Repeat("x", backend.MaxResponseBytes) + `"}`
	httpClient.On("Do", mock.Anything).Return(jsonResponse(http.StatusOK, oversized), nil).Once()

	_, err := client.Checkout(context.Background(), "", domain.OrderPayload{})
	assert.ErrorIs(t, err, backend.ErrResponseTooLarge)

	var statusErr *backend.StatusError
	assert.False(t, errors.As(err, &statusErr))
}
