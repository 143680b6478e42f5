package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/christmas-fire/nexus-push/internal/models"
)

func userIDs(n int) []string {
	return lo.Times(n, func(i int) string { return fmt.Sprintf("u%02d", i) })
}

func TestListInChunks(t *testing.T) {
	known := map[string]models.User{
		"u00": {ID: "u00", FCMTokens: []string{"t0"}},
		"u01": {ID: "u01"},
		"u31": {ID: "u31", FCMTokens: []string{"t31"}},
		"u64": {ID: "u64", FCMTokens: []string{"t64"}},
	}
	boom := errors.New("deadline exceeded")

	tests := []struct {
		name      string
		ids       []string
		failAt    int
		wantIDs   []string
		wantSizes []int
		wantErr   error
	}{
		{
			name:      "no ids, no query",
			ids:       nil,
			wantIDs:   []string{},
			wantSizes: nil,
		},
		{
			name:      "unknown ids are skipped",
			ids:       []string{"u00", "ghost", "u01"},
			wantIDs:   []string{"u00", "u01"},
			wantSizes: []int{3},
		},
		{
			name:      "exactly one full chunk",
			ids:       userIDs(maxInValues),
			wantIDs:   []string{"u00", "u01"},
			wantSizes: []int{30},
		},
		{
			name:      "split at the in limit",
			ids:       userIDs(65),
			wantIDs:   []string{"u00", "u01", "u31", "u64"},
			wantSizes: []int{30, 30, 5},
		},
		{
			name:      "failing chunk aborts",
			ids:       userIDs(65),
			failAt:    2,
			wantSizes: []int{30, 30},
			wantErr:   boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			var sizes []int
			query := func(_ context.Context, chunk []string) ([]models.User, error) {
				sizes = append(sizes, len(chunk))
				if len(sizes) == tt.failAt {
					return nil, boom
				}
				return lo.FilterMap(chunk, func(id string, _ int) (models.User, bool) {
					u, ok := known[id]
					return u, ok
				}), nil
			}

			users, err := listInChunks(context.Background(), tt.ids, maxInValues, query)

			req.Equal(tt.wantSizes, sizes)
			if tt.wantErr != nil {
				req.ErrorIs(err, tt.wantErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.wantIDs, lo.Map(users, func(u models.User, _ int) string { return u.ID }))
		})
	}
}
