package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/url-shortener/internal/messaging"
)

// Publishers holds a typed publish function per topic.
type Publishers struct {
	LinkCreated       messaging.Publish[LinkCreated]
	LinkAccessed      messaging.Publish[LinkAccessed]
	AccountRegistered messaging.Publish[AccountRegistered]
	AccountVerified   messaging.Publish[AccountVerified]
}

// NewPublishers binds every topic to publisher.
func NewPublishers(publisher message.Publisher) *Publishers {
	return &Publishers{
		LinkCreated:       messaging.NewPublishFunc[LinkCreated](publisher, TopicLinkCreated),
		LinkAccessed:      messaging.NewPublishFunc[LinkAccessed](publisher, TopicLinkAccessed),
		AccountRegistered: messaging.NewPublishFunc[AccountRegistered](publisher, TopicAccountRegistered),
		AccountVerified:   messaging.NewPublishFunc[AccountVerified](publisher, TopicAccountVerified),
	}
}
