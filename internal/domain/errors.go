package domain

import "errors"

// Domain errors
var (
	ErrGameNotFound         = errors.New("game not found")
	ErrGenreMappingNotFound = errors.New("genre mapping not found")
	ErrRedirectNotFound     = errors.New("slug redirect not found")
	ErrSettingNotFound      = errors.New("setting not set")
	ErrInvalidGame          = errors.New("title, url and thumbnail are required")
	ErrInvalidSetting       = errors.New("invalid setting value")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrInternalError        = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrGameNotFound) ||
		errors.Is(err, ErrGenreMappingNotFound) ||
		errors.Is(err, ErrRedirectNotFound) ||
		errors.Is(err, ErrSettingNotFound)
}

// IsValidationError checks if an error was caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidGame) ||
		errors.Is(err, ErrInvalidSetting) ||
		errors.Is(err, ErrInvalidRequest)
}
