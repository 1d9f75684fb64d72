package connector

import (
	"github.com/FerroO2000/sensorring/internal/message"
	"github.com/FerroO2000/sensorring/internal/rb"
)

// Message is the envelope carried by a connector.
type Message[T any] = message.Message[T]

// RingBuffer is a bounded generic ring buffer.
type RingBuffer[T any] = rb.RingBuffer[T]
