// Package sensorring provides the entrypoint for running
// the sensor aggregation pipeline.
package sensorring

import (
	"context"
	"sync"
)

// Stage defines the interface for a generic stage.
type Stage interface {
	// Init initializes the stage.
	Init(ctx context.Context) error
	// Run runs the stage until the context is done or the stage is closed.
	Run(ctx context.Context)
	// Close closes (forever) the stage.
	Close()
}

// Pipeline represents a generic pipeline.
// It is the entrypoint for the stages.
type Pipeline struct {
	mux       sync.Mutex
	stages    []Stage
	isRunning bool

	wg *sync.WaitGroup
}

// NewPipeline returns a new pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		stages: []Stage{},

		wg: &sync.WaitGroup{},
	}
}

// AddStage adds a stage to the pipeline.
// Stages added once the pipeline is running are ignored.
func (p *Pipeline) AddStage(stage Stage) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.isRunning {
		return
	}

	p.stages = append(p.stages, stage)
}

// Stages returns the number of stages.
func (p *Pipeline) Stages() int {
	p.mux.Lock()
	defer p.mux.Unlock()

	return len(p.stages)
}

// Init initializes all the stages in the order they were added.
func (p *Pipeline) Init(ctx context.Context) error {
	for _, stage := range p.stages {
		if err := stage.Init(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Run runs all the stages.
// It will spawn a goroutine for each stage and return immediately.
func (p *Pipeline) Run(ctx context.Context) {
	p.mux.Lock()
	defer p.mux.Unlock()

	if p.isRunning {
		return
	}
	p.isRunning = true

	p.wg.Add(len(p.stages))

	for _, stage := range p.stages {
		go func() {
			defer p.wg.Done()
			stage.Run(ctx)
		}()
	}
}

// Wait blocks until all the stages have returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close closes all the stages.
// It blocks until all the stages are closed.
func (p *Pipeline) Close() {
	for _, stage := range p.stages {
		stage.Close()
	}

	p.wg.Wait()
}
