package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownElementType = errors.New("unknown element type")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUpload      = errors.New("invalid upload")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
)
