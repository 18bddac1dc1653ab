// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives validated data from the handler, performs
// business operations, and calls repository methods to interact
// with the data
package service

import "errors"

// Domain errors. Handlers translate them into HTTP errors; anything else
// returned by a service is treated as a store failure.
var (
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("email or password is wrong")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoPriorRecord      = errors.New("no prior record for country and indicator")
)
