package game

import (
	"context"
	"fmt"

	"github.com/openturf/turfkit/apiclient"
)

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// Leaderboard fetches the top entries. A non-positive limit uses the
// server default page size.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	path := "/leaderboard"
	if limit > 0 {
		path = fmt.Sprintf("/leaderboard?limit=%d", limit)
	}
	res := apiclient.Get[[]LeaderboardEntry](ctx, s.api, path)
	return res.Data, resultErr(res)
}
