package game

import (
	"context"
	"time"

	"github.com/openturf/turfkit/apiclient"
)

// Achievement is a badge a player can earn.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements lists the player's achievements, locked and unlocked.
func (s *Service) Achievements(ctx context.Context) ([]Achievement, error) {
	res := apiclient.Get[[]Achievement](ctx, s.api, "/players/me/achievements")
	return res.Data, resultErr(res)
}
