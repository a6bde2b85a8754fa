package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

func newMongoRepo(t *testing.T) *MongoRepo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := "kdrop_test_" + uuid.NewString()[:8]
	r, err := OpenMongo(ctx, uri, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = r.users.Database().Drop(context.Background())
		_ = r.Close()
	})
	return r
}

func TestMongo_StreakCASAndBadges(t *testing.T) {
	ctx := context.Background()
	r := newMongoRepo(t)

	u, err := r.EnsureUser(ctx, 1, "Ada", "ada")
	require.NoError(t, err)
	assert.Equal(t, domain.ThemeRandomMix, u.Preferences.FavoriteTheme)

	updated, err := r.UpdateStreak(ctx, 1, u.Version, domain.Stats{CurrentStreak: 1, LongestStreak: 1, LastViewedDay: "2025-03-10"})
	require.NoError(t, err)
	assert.Equal(t, u.Version+1, updated.Version)

	_, err = r.UpdateStreak(ctx, 1, u.Version, domain.Stats{CurrentStreak: 5})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = r.UpdateStreak(ctx, 2, 0, domain.Stats{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.AddBadges(ctx, 1, []domain.Badge{domain.BadgeHistorian})
	require.NoError(t, err)
	got, err := r.AddBadges(ctx, 1, []domain.Badge{domain.BadgeHistorian, domain.BadgeCollector})
	require.NoError(t, err)
	assert.Equal(t, []domain.Badge{domain.BadgeHistorian, domain.BadgeCollector}, got.Badges)
}

func TestMongo_SaveFactAndQuizRing(t *testing.T) {
	ctx := context.Background()
	r := newMongoRepo(t)
	_, err := r.EnsureUser(ctx, 1, "", "")
	require.NoError(t, err)

	f := domain.SavedFact{Theme: domain.ThemeNature, FactText: "Octopuses have three hearts."}
	u, err := r.SaveFact(ctx, 1, f)
	require.NoError(t, err)
	assert.Equal(t, 1, u.Stats.FactsSaved)
	_, err = r.SaveFact(ctx, 1, f)
	assert.ErrorIs(t, err, ErrDuplicateFact)
	_, err = r.SaveFact(ctx, 9, f)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	var q domain.QuizStats
	for i := 0; i < 12; i++ {
		q, err = r.RecordQuizResult(ctx, 1, domain.NewQuizResult(i%6, 5, domain.ThemeHistory, at.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}
	assert.Equal(t, 12, q.TotalQuizzes)
	assert.Equal(t, 5, q.BestScore)
	assert.Len(t, q.RecentScores, domain.RecentScoresCap)
}

func TestMongo_Ranking(t *testing.T) {
	ctx := context.Background()
	r := newMongoRepo(t)
	for id, views := range map[int64]int{1: 5, 2: 3, 3: 3} {
		_, err := r.EnsureUser(ctx, id, "", "")
		require.NoError(t, err)
		for i := 0; i < views; i++ {
			_, err := r.IncrementViewed(ctx, id)
			require.NoError(t, err)
		}
	}

	top, err := r.TopBy(ctx, domain.MetricFactsViewed, nil, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].ID)

	ahead, err := r.CountGreater(ctx, domain.MetricFactsViewed, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, ahead)

	n, err := r.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
