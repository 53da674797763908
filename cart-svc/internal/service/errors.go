package service

import "errors"

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAddressRequired    = errors.New("delivery address is required")
	ErrNameRequired       = errors.New("customer name is required")
	ErrPhoneRequired      = errors.New("phone is required")
	ErrUnknownLocale      = errors.New("unknown locale type")
	ErrLineNotFound       = errors.New("cart line not found")
	ErrUnknownOption      = errors.New("unknown option")
	ErrInvalidItem        = errors.New("menu item has no id")
	ErrConfiguratorClosed = errors.New("configurator is closed")
	ErrTokenRequired      = errors.New("token is required")
)

// ValidationError is a user-facing rejection of input. It wraps one of the
// sentinels above so callers can match with errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: err.Error(), Err: err}
}
