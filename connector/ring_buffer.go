package connector

import (
	"github.com/FerroO2000/sensorring/internal/message"
	"github.com/FerroO2000/sensorring/internal/rb"
)

var (
	// ErrClosed is returned when the ring buffer is closed.
	ErrClosed = rb.ErrClosed
	// ErrInvalidCapacity is returned when the capacity is lower than one.
	ErrInvalidCapacity = rb.ErrInvalidCapacity
)

var _ Connector[Message[int]] = (*RingBuffer[Message[int]])(nil)

// NewRingBuffer returns a new ring buffer connector carrying messages of T.
func NewRingBuffer[T any](capacity int) (*RingBuffer[Message[T]], error) {
	return rb.NewRingBuffer[message.Message[T]](capacity)
}

// NewMessage returns a new message carrying the given body.
func NewMessage[T any](body T) Message[T] {
	return message.NewMessage(body)
}
