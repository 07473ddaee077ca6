package service

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionClosed    = errors.New("session already terminal")
	ErrNoContracts      = errors.New("no contracts for selected period")
)
