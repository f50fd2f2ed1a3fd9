package domain

import "errors"

var (
	ErrChangeNotFound    = errors.New("change not found")
	ErrReviewUnavailable = errors.New("review system unavailable")
	ErrPartialMerge      = errors.New("atomic group partially merged")
	ErrUnsupportedEvent  = errors.New("unsupported event type")
	ErrInvalidEvent      = errors.New("invalid event payload")
	ErrDispatcherStopped = errors.New("event dispatcher stopped")
	ErrDispatcherBusy    = errors.New("event queue is full")
)
