package domain

import "errors"

var (
	ErrInvalid            = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrSchemaDowngrade    = errors.New("schema version is older than the stored one")
	ErrRemoteUnavailable  = errors.New("remote unavailable")
	ErrExchangeFailed     = errors.New("oauth code exchange failed")
)
