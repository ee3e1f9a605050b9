package events

import "context"

// Store persists consumed events.
type Store interface {
	SaveLinkCreated(ctx context.Context, event *LinkCreated) error
	SaveLinkAccessed(ctx context.Context, event *LinkAccessed) error
	SaveAccountRegistered(ctx context.Context, event *AccountRegistered) error
	SaveAccountVerified(ctx context.Context, event *AccountVerified) error
}
