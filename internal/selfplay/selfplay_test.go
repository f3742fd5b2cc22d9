package selfplay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jaminalder/hyperxo/internal/domain"
)

func TestRunPlaysEveryGame(t *testing.T) {
	cfg := &Config{Games: 3, Depth1: 2, Depth2: 1, Swap: true, Threads: 2, Seed: 3, RandomPlies: 4}
	st, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, 6, st.Count())
	require.Len(t, st.Games, 6)
	require.Equal(t, st.X+st.O, st.Players[0].Wins+st.Players[1].Wins)

	for i, g := range st.Games {
		require.Equal(t, i, g.Index)
		require.True(t, g.Final.Resolved(), "game %d should be finished", i)
		require.Equal(t, g.Final.Winner(), g.Winner)
		require.Equal(t, 4, g.Opening)
		if i%2 == 0 {
			require.Equal(t, domain.X, g.P1)
		} else {
			require.Equal(t, domain.O, g.P1)
		}

		replay := domain.New()
		for _, m := range g.Moves {
			require.NoError(t, replay.ApplyMove(m.Board, m.Cell))
		}
		require.Equal(t, g.Final.Encode(), replay.Encode())
	}
}

func TestRunIsDeterministic(t *testing.T) {
	cfg := &Config{Games: 2, Depth1: 1, Depth2: 1, Threads: 3, Seed: 11, RandomPlies: 6}
	a, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	for i := range a.Games {
		require.Equal(t, a.Games[i].Moves, b.Games[i].Moves)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	_, err := Run(context.Background(), &Config{Games: 0, Depth1: 1, Depth2: 1})
	require.Error(t, err)
	_, err = Run(context.Background(), &Config{Games: 1, Depth1: 0, Depth2: 1})
	require.Error(t, err)
	_, err = Run(context.Background(), &Config{Games: 1, Depth1: 1, Depth2: 1, RandomPlies: -1})
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, &Config{Games: 4, Depth1: 3, Depth2: 3, Threads: 2})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTally(t *testing.T) {
	st := tally([]Result{
		{P1: domain.X, Winner: domain.X},
		{P1: domain.O, Winner: domain.X},
		{P1: domain.O, Winner: domain.O},
		{P1: domain.X, Winner: domain.Empty},
	})
	require.Equal(t, 2, st.X)
	require.Equal(t, 1, st.O)
	require.Equal(t, 1, st.Draws)
	require.Equal(t, PlayerStats{Wins: 2, XWins: 1, OWins: 1}, st.Players[0])
	require.Equal(t, PlayerStats{Wins: 1, XWins: 1}, st.Players[1])
}
