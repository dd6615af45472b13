// Package repository defines sentinel error values reused across multiple
// repositories. They let handlers distinguish failure scenarios without
// string matching: a missing campground redirects with a notice, a
// duplicate email re-renders the registration form, and so on.
package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when registration hits the unique email key.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is returned when registration hits the unique username key.
var ErrUsernameExists = errors.New("username already exists")
