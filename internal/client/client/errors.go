package client

import "errors"

var (
	ErrUnavailable   = errors.New("server unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNotFound      = errors.New("not found")
	ErrTokenExpired  = errors.New("token expired")
	ErrBlobTransfer  = errors.New("blob transfer failed")
	ErrInvalidConfig = errors.New("invalid client configuration")
)
