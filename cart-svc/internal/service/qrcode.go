package service

import (
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

type QRGenerator interface {
	Generate(orderID string) ([]byte, error)
}

// ConfirmationQR encodes a link to the order confirmation page as a PNG.
type ConfirmationQR struct {
	BaseURL string
}

func (g ConfirmationQR) Link(orderID string) string {
	return strings.TrimRight(g.BaseURL, "/") + "/order-confirmation?order=" + url.QueryEscape(orderID)
}

func (g ConfirmationQR) Generate(orderID string) ([]byte, error) {
	return qrcode.Encode(g.Link(orderID), qrcode.Medium, 256)
}
