package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Session storage keys. Values are the persisted wire format shared with the
// storefront clients, so they must not change.
const (
	CartKey      = "liefrik_cart_v1"
	LocaleKey    = "LIEFRIK_LOCALE_V1"
	LastOrderKey = "liefrik_last_order_v1"
)

// AuthKeys are checked in order when resolving the session's backend token.
var AuthKeys = []string{"liefrik_token", "token", "auth"}

// DefaultRestaurantName groups lines that carry no restaurant name.
const DefaultRestaurantName = "Restaurant"

// Amount is a price as stored by clients. Numbers and numeric strings decode
// to their value, anything else decodes to 0. NaN and infinities are not
// prices either.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == '{' || data[0] == '[' {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*a = finite(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*a = finite(v)
		}
	}
	return nil
}

func finite(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return Amount(v)
}

type AddOn struct {
	Name  string `json:"name"`
	Price Amount `json:"price"`
}

type SizeOption struct {
	Label string `json:"label"`
	Price Amount `json:"price"`
}

// CartLine is one configured add-to-cart action. Lines are never merged, two
// identical configurations produce two lines.
type CartLine struct {
	ID                     string       `json:"id"`
	RestaurantID           string       `json:"restaurantId"`
	RestaurantName         string       `json:"restaurantName"`
	Name                   string       `json:"name"`
	Img                    string       `json:"img"`
	Qty                    int          `json:"qty"`
	UnitPrice              Amount       `json:"unitPrice"`
	SelectedSize           *string      `json:"selectedSize"`
	SelectedAddOnsDetailed []AddOn      `json:"selectedAddOnsDetailed"`
	AvailableSizes         []SizeOption `json:"availableSizes,omitempty"`
	AvailableAddOns        []AddOn      `json:"availableAddOns,omitempty"`
}

// MenuItem is the catalog entry a line is configured from.
type MenuItem struct {
	ID             string       `json:"id"`
	RestaurantID   string       `json:"restaurantId"`
	RestaurantName string       `json:"restaurantName"`
	Name           string       `json:"name"`
	Img            string       `json:"img"`
	Price          Amount       `json:"price"`
	Sizes          []SizeOption `json:"sizes"`
	AddOns         []AddOn      `json:"addOns"`
}

type LocaleType string

const (
	LocaleNone     LocaleType = "none"
	LocalePostcode LocaleType = "postcode"
	LocaleCoords   LocaleType = "coords"
)

func (t LocaleType) Valid() bool {
	switch t {
	case LocaleNone, LocalePostcode, LocaleCoords:
		return true
	}
	return false
}

// LocalePreference is the delivery area the customer picked.
type LocalePreference struct {
	Type    LocaleType      `json:"type"`
	Label   string          `json:"label"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Identity is the logged-in user of a session, if any.
type Identity struct {
	UserID string
	Token  string
}

func (i Identity) Known() bool {
	return i.UserID != ""
}

// ServerCartItem is the body of the best-effort POST /cart/add mirror call.
type ServerCartItem struct {
	UserID     string  `json:"userId"`
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	Size       *string `json:"size"`
	AddOns     []AddOn `json:"addOns"`
}
