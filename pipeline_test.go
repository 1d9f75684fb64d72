package sensorring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type dummyStage struct {
	initErr error

	inits  atomic.Int32
	runs   atomic.Int32
	closes atomic.Int32

	closeCh chan struct{}
}

func newDummyStage() *dummyStage {
	return &dummyStage{
		closeCh: make(chan struct{}),
	}
}

func (s *dummyStage) Init(_ context.Context) error {
	s.inits.Add(1)
	return s.initErr
}

func (s *dummyStage) Run(ctx context.Context) {
	s.runs.Add(1)

	select {
	case <-ctx.Done():
	case <-s.closeCh:
	}
}

func (s *dummyStage) Close() {
	if s.closes.Add(1) == 1 {
		close(s.closeCh)
	}
}

func Test_Pipeline(t *testing.T) {
	assert := assert.New(t)

	stages := []*dummyStage{newDummyStage(), newDummyStage(), newDummyStage()}

	pipeline := NewPipeline()
	for _, stage := range stages {
		pipeline.AddStage(stage)
	}
	assert.Equal(3, pipeline.Stages())

	assert.NoError(pipeline.Init(t.Context()))

	pipeline.Run(t.Context())
	pipeline.Run(t.Context())

	// Stages added while running are ignored
	late := newDummyStage()
	pipeline.AddStage(late)
	assert.Equal(3, pipeline.Stages())

	assert.Eventually(func() bool {
		for _, stage := range stages {
			if stage.runs.Load() != 1 {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)

	pipeline.Close()

	for _, stage := range stages {
		assert.Equal(int32(1), stage.inits.Load())
		assert.Equal(int32(1), stage.runs.Load())
		assert.Equal(int32(1), stage.closes.Load())
	}

	assert.Zero(late.inits.Load())
	assert.Zero(late.runs.Load())
}

func Test_Pipeline_InitError(t *testing.T) {
	assert := assert.New(t)

	initErr := errors.New("init failure")

	first := newDummyStage()
	failing := newDummyStage()
	failing.initErr = initErr
	last := newDummyStage()

	pipeline := NewPipeline()
	pipeline.AddStage(first)
	pipeline.AddStage(failing)
	pipeline.AddStage(last)

	assert.ErrorIs(pipeline.Init(t.Context()), initErr)
	assert.Equal(int32(1), first.inits.Load())
	assert.Zero(last.inits.Load())
}

func Test_Pipeline_Wait(t *testing.T) {
	stage := newDummyStage()

	pipeline := NewPipeline()
	pipeline.AddStage(stage)

	ctx, cancelCtx := context.WithCancel(t.Context())
	pipeline.Run(ctx)

	waitCh := make(chan struct{})
	go func() {
		pipeline.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		t.Fatal("wait returned while the stage was running")
	case <-time.After(20 * time.Millisecond):
	}

	cancelCtx()

	select {
	case <-waitCh:
	case <-time.After(time.Second):
		t.Fatal("wait did not return after the stage stopped")
	}
}
