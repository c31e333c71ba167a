package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
	ErrorClassConflict
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505":
			return ErrorClassConflict
		}
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorClassTransient, ErrorClassDeadlock, ErrorClassSerialization:
		return true
	}
	return false
}

// IsUniqueViolation reports a duplicate key, e.g. a second account for the
// same email.
func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrorClassConflict
}

// IsLockNotAvailable reports a NOWAIT lock that was already held.
func IsLockNotAvailable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "55P03"
}

// NotFound maps sql.ErrNoRows to the given sentinel.
func NotFound(err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrProductNotFound      = errors.New("product not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCartItemNotFound     = errors.New("item not found in cart")
	ErrVariantNotFound      = errors.New("variant not found")
	ErrCouponNotFound       = errors.New("coupon not found")
	ErrFlashSaleNotFound    = errors.New("flash sale not found")
	ErrSessionNotFound      = errors.New("session not found or expired")
	ErrEmailTaken           = errors.New("email already registered")
	ErrSKUTaken             = errors.New("sku already exists")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOptimisticLockFailed = errors.New("optimistic lock failed")
	ErrLockTimeout          = errors.New("lock timeout")
	ErrOrderNotCancellable  = errors.New("delivered orders cannot be cancelled")
	ErrCouponInvalid        = errors.New("coupon is not valid")
	ErrInvalidOTP           = errors.New("invalid or expired otp")
	ErrInvalidResetToken    = errors.New("invalid or expired reset token")
)
