// Package egress contains the stages that consume readings.
package egress

import (
	"github.com/FerroO2000/sensorring/connector"
	"github.com/FerroO2000/sensorring/internal/config"
	"github.com/FerroO2000/sensorring/internal/message"
)

type msg[T any] = message.Message[T]

type msgConn[T any] = connector.Connector[msg[T]]

type cfg = config.Config
