package contest

import "errors"

var (
	ErrNameRequired       = errors.New("contest name is required")
	ErrCandidatesRequired = errors.New("contest requires at least one candidate")
	ErrInvalidWindow      = errors.New("contest end must not be before start")

	ErrInvalidDeepLink = errors.New("invalid vote deep link")
	ErrNoSession       = errors.New("no voter session")
	ErrSessionStep     = errors.New("voter session is in a different step")

	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDatetime = errors.New("invalid datetime")
)
