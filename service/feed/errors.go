package feed

import (
	"errors"
	"fmt"
)

// Failure taxonomy for feed operations. Handlers map these onto HTTP
// statuses; everything else is treated as an internal failure.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("caller does not own this resource")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Copies are never canonical, so only originals may be retweeted.
var ErrCannotRetweetRetweet = fmt.Errorf("%w: cannot retweet a retweet", ErrInvalidOperation)

// Retweet and unretweet are separate operations with distinct failure
// modes, not a membership-inferred toggle.
var ErrAlreadyRetweeted = fmt.Errorf("%w: already retweeted", ErrInvalidOperation)

var ErrEmptyContent = fmt.Errorf("%w: content cannot be empty", ErrInvalidOperation)
