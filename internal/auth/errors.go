package auth

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrForbidden    = errors.New("auth: forbidden")
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrGridScope is returned when a grid-scoped token touches another grid.
	ErrGridScope = fmt.Errorf("%w: grid outside token scope", ErrForbidden)
)
