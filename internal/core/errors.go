package core

import "errors"

var (
	ErrInvalidOrder          = errors.New("invalid order")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidYear           = errors.New("invalid year")
	ErrUnknownQuery          = errors.New("unknown query")
	ErrDataSourceUnavailable = errors.New("data source unavailable")
)
