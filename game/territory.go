package game

import (
	"context"
	"fmt"
	"time"

	"github.com/openturf/turfkit/apiclient"
	"github.com/openturf/turfkit/logger"
)

// Territory is a claimable region on the map.
type Territory struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	OwnerID    string     `json:"owner_id,omitempty"`
	AreaMeters float64    `json:"area_meters"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
}

// Claim is the outcome of a successful territory claim.
type Claim struct {
	TerritoryID string    `json:"territory_id"`
	ClaimedAt   time.Time `json:"claimed_at"`
	XPEarned    int       `json:"xp_earned"`
}

// Territory fetches a single territory.
func (s *Service) Territory(ctx context.Context, territoryID string) (Territory, error) {
	res := apiclient.Get[Territory](ctx, s.api, "/territories/"+territoryID)
	return res.Data, resultErr(res)
}

// NearbyTerritories lists territories around a position.
func (s *Service) NearbyTerritories(ctx context.Context, lat, lon float64, radiusMeters int) ([]Territory, error) {
	path := fmt.Sprintf("/territories?lat=%f&lon=%f&radius=%d", lat, lon, radiusMeters)
	res := apiclient.Get[[]Territory](ctx, s.api, path)
	return res.Data, resultErr(res)
}

// ClaimTerritory claims a territory for the authenticated player. A
// claim is player effort: it runs at high priority and is queued while
// offline rather than dropped.
func (s *Service) ClaimTerritory(ctx context.Context, territoryID string) (Claim, error) {
	path := fmt.Sprintf("/territories/%s/claim", territoryID)
	opts := managedOpts(10 * time.Second)

	var claim Claim
	err := s.execute(ctx, opts, func(ctx context.Context) error {
		res := apiclient.Post[Claim](ctx, s.api, path, nil,
			apiclient.Options{Retries: apiclient.NoRetries, Timeout: opts.Timeout})
		if !res.OK {
			return res.Err
		}
		claim = res.Data
		return nil
	})
	if err != nil {
		return Claim{}, toAppError(err)
	}

	s.log.Info("territory claimed", logger.Fields(
		"territory_id", territoryID,
		"xp", claim.XPEarned,
	))
	return claim, nil
}
