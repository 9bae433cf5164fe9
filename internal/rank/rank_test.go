package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/citywx/internal/models"
)

func at(s string) time.Time {
	t, err := models.ParseObservedAt(s)
	if err != nil {
		panic(err)
	}
	return t
}

func full(id int64, name, observed string) models.Record {
	return models.Record{
		ID:           id,
		LocationName: name,
		Temperature:  models.Float(31),
		FeelsLike:    models.Float(24),
		Humidity:     models.Int(70),
		Description:  models.String("light snow"),
		WindSpeed:    models.Float(12),
		ObservedAt:   at(observed),
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		rec  models.Record
		want int
	}{
		{"empty", models.Record{LocationName: "X"}, 0},
		{"complete", full(1, "X", "2024-01-01 00:00:00"), 5},
		{"zero values count", models.Record{Temperature: models.Float(0), Humidity: models.Int(0), WindSpeed: models.Float(0)}, 3},
		{"blank description ignored", models.Record{Description: models.String("   ")}, 0},
		{"description only", models.Record{Description: models.String("fog")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.rec))
		})
	}
	assert.Equal(t, 5, MaxScore)
}

func TestBest_CompletenessBeatsRecency(t *testing.T) {
	older := full(1, "Chicago", "2024-01-01 00:00:00")
	newer := models.Record{
		ID:           2,
		LocationName: "Chicago",
		Temperature:  models.Float(28),
		Description:  models.String("overcast"),
		ObservedAt:   at("2024-01-05 00:00:00"),
	}

	best, err := Best([]models.Record{newer, older})
	require.NoError(t, err)
	assert.Equal(t, int64(1), best.ID)

	best, err = Best([]models.Record{older, newer})
	require.NoError(t, err)
	assert.Equal(t, int64(1), best.ID)
}

func TestBest_FiveFieldRecordBeatsOneFieldRecordFromToday(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	stale := full(1, "Denver", now.Add(-72*time.Hour).Format(models.ObservedAtLayout))
	fresh := models.Record{ID: 2, LocationName: "Denver", Temperature: models.Float(50), ObservedAt: now}

	best, err := Best([]models.Record{fresh, stale})
	require.NoError(t, err)
	assert.Equal(t, stale, best)
}

func TestBest_TieBrokenByRecency(t *testing.T) {
	a := full(1, "Miami", "2024-05-01 08:00:00")
	b := full(2, "Miami", "2024-05-03 08:00:00")
	c := full(3, "Miami", "2024-05-02 08:00:00")

	best, err := Best([]models.Record{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, int64(2), best.ID)
}

func TestBest_IdenticalTimestampsPreferLaterAppend(t *testing.T) {
	a := full(7, "Dallas", "2024-05-01 08:00:00")
	b := full(9, "Dallas", "2024-05-01 08:00:00")

	best, err := Best([]models.Record{b, a})
	require.NoError(t, err)
	assert.Equal(t, int64(9), best.ID)
}

func TestBest_Empty(t *testing.T) {
	_, err := Best(nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	sparse := models.Record{ID: 1, LocationName: "Phoenix", ObservedAt: at("2024-06-01 00:00:00")}
	rich := full(2, "Phoenix", "2024-05-01 00:00:00")
	in := []models.Record{sparse, rich}

	ranked := Rank(in)

	require.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].Record.ID)
	assert.Equal(t, 5, ranked[0].Score)
	assert.Equal(t, 0, ranked[1].Score)
	assert.Equal(t, int64(1), in[0].ID)
}
