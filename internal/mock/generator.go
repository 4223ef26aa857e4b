// Package mock drives the session with synthetic movement so a fresh server
// has something to watch.
package mock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"maps"
	"math/rand"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/canvas-session/server/internal/session"
)

// Driver is the part of the session actor the generator needs.
type Driver interface {
	Submit(ctx context.Context, cmd session.Command) error
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

type Options struct {
	Movers   int
	Interval time.Duration
}

const (
	patternOrbit  = "orbit"
	patternDrift  = "drift"
	patternBounce = "bounce"

	orbitRadius  = 60.0
	orbitPeriod  = 40 // ticks per revolution
	driftStep    = 8.0
	bounceStep   = 12.0
	bounceLength = 20 // ticks per leg
)

var patterns = []string{patternOrbit, patternDrift, patternBounce}

type mover struct {
	id      string
	pattern string
	phase   int
}

type MockGenerator struct {
	driver Driver
	opts   Options
	logger zerolog.Logger
	movers []*mover
}

func NewGenerator(driver Driver, opts Options, logger zerolog.Logger) *MockGenerator {
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	return &MockGenerator{
		driver: driver,
		opts:   opts,
		logger: logger.With().Str("component", "mock").Logger(),
	}
}

// Start picks up to Movers rectangles from the current scene and moves them
// every Interval until ctx is cancelled.
func (g *MockGenerator) Start(ctx context.Context) error {
	snap, err := g.driver.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reading scene: %w", err)
	}

	ids := slices.Sorted(maps.Keys(snap.Rectangles))
	if g.opts.Movers < len(ids) {
		ids = ids[:g.opts.Movers]
	}
	g.movers = g.movers[:0]
	for i, id := range ids {
		g.movers = append(g.movers, &mover{id: id, pattern: patterns[i%len(patterns)]})
	}

	g.logger.Info().Int("movers", len(g.movers)).Dur("interval", g.opts.Interval).Msg("mock movement started")
	go g.run(ctx)
	return nil
}

func (g *MockGenerator) run(ctx context.Context) {
	ticker := time.NewTicker(g.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, m := range g.movers {
				dx, dy := m.advance()
				err := g.driver.Submit(ctx, session.MoveRectangle{ID: m.id, DX: dx, DY: dy})
				if errors.Is(err, session.ErrActorStopped) || errors.Is(err, context.Canceled) {
					return
				}
				if err != nil {
					g.logger.Debug().Err(err).Str("rectangle", m.id).Msg("mock move not submitted")
				}
			}
		}
	}
}

// advance returns the next displacement for m and steps its phase.
func (m *mover) advance() (dx, dy float64) {
	defer func() { m.phase++ }()

	switch m.pattern {
	case patternOrbit:
		return orbitStep(m.phase)
	case patternBounce:
		if (m.phase/bounceLength)%2 == 0 {
			return bounceStep, 0
		}
		return -bounceStep, 0
	default:
		return (rand.Float64()*2 - 1) * driftStep, (rand.Float64()*2 - 1) * driftStep
	}
}

// orbitStep is the displacement between two consecutive points on a circle,
// so a full period sums to zero.
func orbitStep(phase int) (dx, dy float64) {
	a0 := 2 * math.Pi * float64(phase%orbitPeriod) / orbitPeriod
	a1 := 2 * math.Pi * float64(phase%orbitPeriod+1) / orbitPeriod
	return orbitRadius * (math.Cos(a1) - math.Cos(a0)), orbitRadius * (math.Sin(a1) - math.Sin(a0))
}
