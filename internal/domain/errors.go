package domain

import "errors"

var (
	// ErrWarehouseUnavailable marks connectivity and authentication failures
	ErrWarehouseUnavailable = errors.New("warehouse unavailable")

	// ErrQueryFailed marks a query the warehouse accepted but could not run
	ErrQueryFailed = errors.New("warehouse query failed")

	ErrUnknownCity   = errors.New("unknown city")
	ErrInvalidWindow = errors.New("day window out of range")
	ErrInvalidQuery  = errors.New("invalid query parameters")

	// ErrRender marks an unexpected failure while building a view
	ErrRender = errors.New("view rendering failed")
)
