package domain

import "errors"

// ErrNotFound is returned by repo and store functions when the requested
// trip document does not exist.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails business rule validation
// (e.g. an empty trip title or a packing item without text).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUpload is returned by the upload service when a file is too large,
// the backend times out, or the backend rejects the object.
var ErrUpload = errors.New("upload failed")

// ErrNoActiveTrip is returned by store mutators when the session is not
// bound to any trip document yet (the caller must create or join one).
var ErrNoActiveTrip = errors.New("no active trip")

// ErrUnauthenticated is returned for operations that need a signed-in
// identity, such as joining a trip by code.
var ErrUnauthenticated = errors.New("unauthenticated")
