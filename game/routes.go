package game

import (
	"context"
	"fmt"
	"time"

	"github.com/openturf/turfkit/apiclient"
	"github.com/openturf/turfkit/connectivity"
	"github.com/openturf/turfkit/logger"
)

// RoutePoint is one GPS fix on a route.
type RoutePoint struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Altitude   float64   `json:"altitude,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Route is a recorded movement session.
type Route struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	DistanceMeters float64    `json:"distance_meters"`
	PointCount     int        `json:"point_count"`
}

// RouteResult is the outcome of finishing a route: the closed route
// plus whatever it captured.
type RouteResult struct {
	Route       Route    `json:"route"`
	Territories []string `json:"territory_ids"`
	XPEarned    int      `json:"xp_earned"`
}

// StartRoute opens a new route recording session.
func (s *Service) StartRoute(ctx context.Context) (Route, error) {
	res := apiclient.Post[Route](ctx, s.api, "/routes", nil)
	return res.Data, resultErr(res)
}

// AppendPoints uploads a batch of GPS points to an open route. Batches
// go through the connectivity manager at normal priority, so points
// recorded in a tunnel are delivered once the connection returns.
func (s *Service) AppendPoints(ctx context.Context, routeID string, points []RoutePoint) error {
	path := fmt.Sprintf("/routes/%s/points", routeID)
	opts := connectivity.ExecOptions{
		Priority:       connectivity.PriorityNormal,
		Timeout:        10 * time.Second,
		AdaptToNetwork: true,
	}
	return toAppError(s.execute(ctx, opts, func(ctx context.Context) error {
		res := apiclient.Post[struct{}](ctx, s.api, path,
			map[string][]RoutePoint{"points": points},
			apiclient.Options{Retries: apiclient.NoRetries, Timeout: opts.Timeout})
		if !res.OK {
			return res.Err
		}
		return nil
	}))
}

// FinishRoute closes a route and reports what it captured. Finished
// routes are player effort that must not be lost: the upload runs at
// high priority and is queued while offline.
func (s *Service) FinishRoute(ctx context.Context, routeID string) (RouteResult, error) {
	path := fmt.Sprintf("/routes/%s/finish", routeID)
	opts := managedOpts(15 * time.Second)

	var result RouteResult
	err := s.execute(ctx, opts, func(ctx context.Context) error {
		res := apiclient.Post[RouteResult](ctx, s.api, path, nil,
			apiclient.Options{Retries: apiclient.NoRetries, Timeout: opts.Timeout})
		if !res.OK {
			return res.Err
		}
		result = res.Data
		return nil
	})
	if err != nil {
		return RouteResult{}, toAppError(err)
	}

	s.log.Info("route finished", logger.Fields(
		"route_id", routeID,
		"territories", len(result.Territories),
		"xp", result.XPEarned,
	))
	return result, nil
}

// Route fetches a single route.
func (s *Service) Route(ctx context.Context, routeID string) (Route, error) {
	res := apiclient.Get[Route](ctx, s.api, "/routes/"+routeID)
	return res.Data, resultErr(res)
}

