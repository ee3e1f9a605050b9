package events

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/url-shortener/internal/messaging"
	"go.uber.org/zap"
)

// NewConsumerGroup subscribes store to every event topic.
func NewConsumerGroup(subscriber message.Subscriber, store Store, logger *zap.Logger) *messaging.ConsumerGroup {
	group := messaging.NewConsumerGroup(subscriber, logger)

	group.Add(messaging.NewConsumer(subscriber, TopicLinkCreated, store.SaveLinkCreated, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicLinkAccessed, store.SaveLinkAccessed, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicAccountRegistered, store.SaveAccountRegistered, logger))
	group.Add(messaging.NewConsumer(subscriber, TopicAccountVerified, store.SaveAccountVerified, logger))

	return group
}
