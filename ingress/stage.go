package ingress

import (
	"context"
	"sync"

	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
)

type source[Out any, Cfg cfg] interface {
	setTelemetry(tel *internal.Telemetry)
	init(cfg Cfg) error
	run(ctx context.Context, outputConnector msgConn[Out])
}

type stage[Out any, Cfg cfg] struct {
	tel *internal.Telemetry

	cfg Cfg

	source source[Out, Cfg]

	outputConnector msgConn[Out]

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newStage[Out any, Cfg cfg](name string, source source[Out, Cfg], outConn msgConn[Out], cfg Cfg) *stage[Out, Cfg] {
	tel := internal.NewTelemetry("ingress", name)
	source.setTelemetry(tel)

	return &stage[Out, Cfg]{
		tel: tel,

		cfg: cfg,

		source: source,

		outputConnector: outConn,

		closeCh: make(chan struct{}),
	}
}

func (s *stage[Out, Cfg]) Init(_ context.Context) error {
	s.tel.LogInfo("initializing")

	configValidator := config.NewValidator(s.tel)
	configValidator.Validate(s.cfg)

	return s.source.init(s.cfg)
}

func (s *stage[Out, Cfg]) Run(ctx context.Context) {
	s.tel.LogInfo("running")

	ctx, cancelCtx := context.WithCancel(ctx)
	defer cancelCtx()

	// Closing the stage cancels the source
	go func() {
		select {
		case <-s.closeCh:
			cancelCtx()
		case <-ctx.Done():
		}
	}()

	s.source.run(ctx, s.outputConnector)
}

// Close stops the source. The output connector may be shared with other
// stages, so it is left open for its owner to close.
func (s *stage[Out, Cfg]) Close() {
	s.closeOnce.Do(func() {
		s.tel.LogInfo("closing")

		close(s.closeCh)
	})
}
