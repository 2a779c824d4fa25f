package service

import "errors"

var (
	// ErrEmailTaken maps to 409 on registration.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so the response does not reveal which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound maps to 404.
	ErrNotFound = errors.New("not found")
	// ErrValidation maps to 400; the wrapping message carries the detail.
	ErrValidation = errors.New("validation failed")
	// ErrRefreshMismatch is returned when the presented access/refresh
	// pair does not match the stored record.
	ErrRefreshMismatch = errors.New("token does not match refresh token")
)
