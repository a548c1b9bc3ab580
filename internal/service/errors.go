package service

import (
	"errors"

	"github.com/d60-Lab/bcc-marketplace/internal/cart"
	"github.com/d60-Lab/bcc-marketplace/internal/repository"
)

// 调用方可见的业务错误，均可恢复
var (
	ErrUnknownProduct  = cart.ErrUnknownProduct
	ErrInvalidQuantity = cart.ErrInvalidQuantity
	ErrOrderNotFound   = repository.ErrOrderNotFound

	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrPaymentInProgress  = errors.New("payment already in progress for order")
	ErrNoPendingOrder     = errors.New("no order awaiting payment")
	ErrSessionNotFound    = errors.New("session not found")
	ErrOrderIDUnavailable = errors.New("could not allocate a unique order id")
	ErrQueueFull          = errors.New("payment queue is full")
)

var ErrEmptyMessage = errors.New("message is empty")
