// Package eventbus wraps the process-wide publish/subscribe bus behind an
// explicit interface so components receive it by reference instead of
// reaching for an ambient global channel.
package eventbus

import (
	evbus "github.com/asaskevich/EventBus"
)

// Topics published by the channel subsystem.
const (
	TopicChannelConnected = "channel.connected"
	TopicChannelRemoved   = "channel.removed"
)

// Publisher is the write side handed to services that need to signal the
// presentation layer.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

// Subscriber is the read side handed to notification consumers.
type Subscriber interface {
	Subscribe(topic string, fn interface{}) error
	SubscribeAsync(topic string, fn interface{}) error
	Unsubscribe(topic string, fn interface{}) error
}

// Bus combines both sides.
type Bus interface {
	Publisher
	Subscriber
}

type bus struct {
	eb evbus.Bus
}

// New returns an in-process bus.
func New() Bus {
	return &bus{eb: evbus.New()}
}

func (b *bus) Publish(topic string, args ...interface{}) {
	b.eb.Publish(topic, args...)
}

func (b *bus) Subscribe(topic string, fn interface{}) error {
	return b.eb.Subscribe(topic, fn)
}

func (b *bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.eb.SubscribeAsync(topic, fn, false)
}

func (b *bus) Unsubscribe(topic string, fn interface{}) error {
	return b.eb.Unsubscribe(topic, fn)
}
