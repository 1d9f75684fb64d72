package egress

import (
	"context"
	"sync"

	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
)

type stageBase[In any, Cfg cfg] struct {
	tel *internal.Telemetry

	config Cfg

	inputConnector msgConn[In]

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newStageBase[In any, Cfg cfg](name string, inConn msgConn[In], cfg Cfg) *stageBase[In, Cfg] {
	return &stageBase[In, Cfg]{
		tel: internal.NewTelemetry("egress", name),

		config: cfg,

		inputConnector: inConn,

		closeCh: make(chan struct{}),
	}
}

func (s *stageBase[In, Cfg]) init() {
	s.tel.LogInfo("initializing")

	configValidator := config.NewValidator(s.tel)
	configValidator.Validate(s.config)
}

// run returns a context that is canceled when the stage is closed.
func (s *stageBase[In, Cfg]) run(ctx context.Context) (context.Context, context.CancelFunc) {
	s.tel.LogInfo("running")

	ctx, cancelCtx := context.WithCancel(ctx)

	go func() {
		select {
		case <-s.closeCh:
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	return ctx, cancelCtx
}

func (s *stageBase[In, Cfg]) close() {
	s.closeOnce.Do(func() {
		s.tel.LogInfo("closing")
		close(s.closeCh)
	})
}
