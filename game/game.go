// Package game is the typed surface of the OpenTurf API: player
// profiles, GPS routes, territory claims, leaderboards and
// achievements, all issued through the resilient request pipeline.
//
// Mutating operations that represent real player effort (finishing a
// route, claiming a territory) run through the connectivity manager at
// high priority, so they are queued and replayed instead of lost when
// the device goes offline.
package game

import (
	"context"
	"time"

	"github.com/openturf/turfkit/apiclient"
	"github.com/openturf/turfkit/connectivity"
	"github.com/openturf/turfkit/logger"
)

// Service exposes the game endpoints. Construct one with NewService and
// share it; all methods are safe for concurrent use.
type Service struct {
	api *apiclient.Client
	net *connectivity.Manager
	log *logger.Logger
}

// NewService creates a game service. net may be nil, in which case all
// operations run directly against the pipeline with its own retry
// budget and nothing is queued while offline.
func NewService(api *apiclient.Client, net *connectivity.Manager, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		api: api,
		net: net,
		log: log.WithComponent("game"),
	}
}

// execute runs fn through the connectivity manager when one is
// attached. The manager owns retries and offline queuing on that path;
// fn must therefore issue single-attempt requests.
func (s *Service) execute(ctx context.Context, opts connectivity.ExecOptions, fn connectivity.Operation) error {
	if s.net == nil {
		return fn(ctx)
	}
	return s.net.Execute(ctx, fn, opts)
}

// managedOpts is the execution profile for queued player-effort writes.
func managedOpts(timeout time.Duration) connectivity.ExecOptions {
	return connectivity.ExecOptions{
		Priority:       connectivity.PriorityHigh,
		Timeout:        timeout,
		AdaptToNetwork: true,
	}
}

// resultErr extracts the error from a pipeline result and lifts it
// into the shared error vocabulary.
func resultErr[T any](res apiclient.Result[T]) error {
	if res.OK {
		return nil
	}
	return toAppError(res.Err)
}
