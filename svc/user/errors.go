package user

import "errors"

var (
	ErrUserNotFound     = errors.New("user.not_found")
	ErrEmailTaken       = errors.New("user.email_taken")
	ErrInvalidPlan      = errors.New("user.invalid_plan")
	ErrInvalidRole      = errors.New("user.invalid_role")
	ErrInvalidPassword  = errors.New("user.invalid_password")
	ErrPasswordTooShort = errors.New("user.password_too_short")
	ErrPasswordHashing  = errors.New("user.password_hashing_failed")
	ErrStoreUnavailable = errors.New("user.store_unavailable")
)
