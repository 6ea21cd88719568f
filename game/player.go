package game

import (
	"context"
	"time"

	"github.com/openturf/turfkit/apiclient"
)

// Player is a player profile.
type Player struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Level          int       `json:"level"`
	XP             int       `json:"xp"`
	TerritoryCount int       `json:"territory_count"`
	DistanceMeters float64   `json:"distance_meters"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProfileUpdate is a partial profile update.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
}

// Profile fetches the authenticated player's profile.
func (s *Service) Profile(ctx context.Context) (Player, error) {
	res := apiclient.Get[Player](ctx, s.api, "/players/me")
	return res.Data, resultErr(res)
}

// UpdateProfile applies a partial update to the player's profile.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (Player, error) {
	res := apiclient.Put[Player](ctx, s.api, "/players/me", update)
	return res.Data, resultErr(res)
}
