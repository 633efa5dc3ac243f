package ranking

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	tests := []struct {
		name      string
		standings []Standing
		want      map[int]int
	}{
		{
			name:      "empty",
			standings: nil,
			want:      map[int]int{},
		},
		{
			name:      "single user",
			standings: []Standing{{UserID: 7, Points: 0}},
			want:      map[int]int{7: 1},
		},
		{
			name: "ordered by points",
			standings: []Standing{
				{UserID: 1, Points: 100},
				{UserID: 2, Points: 300},
				{UserID: 3, Points: 200},
			},
			want: map[int]int{2: 1, 3: 2, 1: 3},
		},
		{
			name: "ties broken by user id",
			standings: []Standing{
				{UserID: 5, Points: 100},
				{UserID: 2, Points: 100},
				{UserID: 9, Points: 0},
				{UserID: 1, Points: 0},
			},
			want: map[int]int{2: 1, 5: 2, 1: 3, 9: 4},
		},
		{
			name: "all zero",
			standings: []Standing{
				{UserID: 3}, {UserID: 1}, {UserID: 2},
			},
			want: map[int]int{1: 1, 2: 2, 3: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assign(tt.standings))
		})
	}
}

func TestAssignIsPermutation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	standings := make([]Standing, 200)
	for i := range standings {
		standings[i] = Standing{UserID: i + 1, Points: r.Intn(10) * 100}
	}
	r.Shuffle(len(standings), func(i, j int) { standings[i], standings[j] = standings[j], standings[i] })

	ranks := Assign(standings)
	require.Len(t, ranks, len(standings))

	seen := make(map[int]bool, len(ranks))
	for _, rank := range ranks {
		assert.GreaterOrEqual(t, rank, 1)
		assert.LessOrEqual(t, rank, len(standings))
		assert.False(t, seen[rank], "rank %d assigned twice", rank)
		seen[rank] = true
	}

	points := make(map[int]int, len(standings))
	for _, s := range standings {
		points[s.UserID] = s.Points
	}
	for a, ra := range ranks {
		for b, rb := range ranks {
			if points[a] > points[b] {
				assert.Less(t, ra, rb, "user %d has more points than %d", a, b)
			}
		}
	}
}

func TestOrderDoesNotMutateInput(t *testing.T) {
	in := []Standing{{UserID: 1, Points: 0}, {UserID: 2, Points: 100}}
	out := Order(in)

	assert.Equal(t, 1, in[0].UserID)
	assert.Equal(t, 2, out[0].UserID)
}
