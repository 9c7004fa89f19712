package domain

import "errors"

// Sentinel errors for provider-reported failure classes. Handlers map
// these to distinguishing HTTP statuses so the UI can show a specific
// "try again later" or "add credits" message instead of a generic one.
var (
	ErrRateLimited    = errors.New("completion provider rate limited")
	ErrQuotaExhausted = errors.New("completion provider quota exhausted")
)
