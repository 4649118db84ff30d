package repositories

import "errors"

// ErrNotFound is returned by every repository when the requested record does
// not exist. Implementations translate their driver's sentinel into this one
// so services never import the ORM.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateEmail is returned when a write violates the unique email
// index. Email is the schema's only unique column, so the user repository
// can name the offending field without inspecting driver error details.
var ErrDuplicateEmail = errors.New("email already taken")
