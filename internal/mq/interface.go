// Package mq publishes and consumes watcher events over Redis Streams or
// Kafka.
package mq

import "context"

// Message is one event as delivered to a consumer.
type Message struct {
	ID      string
	Topic   string
	Key     string
	Payload []byte
}

type Producer interface {
	// Publish sends payload to topic. Messages with the same key keep their
	// relative order where the broker supports it.
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

type Consumer interface {
	// Subscribe blocks, calling handler for each message until ctx is done.
	// A handler error leaves the message unacknowledged.
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}
