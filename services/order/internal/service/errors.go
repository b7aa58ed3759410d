package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation")
	ErrNotFound          = errors.New("not found")
	ErrStock             = errors.New("stock")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")

	ErrProductUnavailable = fmt.Errorf("%w: product unavailable", ErrStock)
	ErrInsufficientStock  = fmt.Errorf("%w: insufficient stock", ErrStock)
	ErrEmptyCart          = fmt.Errorf("%w: cart is empty", ErrValidation)
)
