package apperrors

import (
	"errors"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotGuildMember  = errors.New("not a member of target organization")
	ErrMissingRole     = errors.New("missing required role")

	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidState    = errors.New("oauth state is invalid")
	ErrUpstream        = errors.New("identity provider unavailable")

	ErrValidation         = errors.New("refund validation failed")
	ErrRefundNotFound     = errors.New("refund not found") // read-back by id only, claim never reports it
	ErrRefundNotClaimable = errors.New("refund not found or already claimed")
)
