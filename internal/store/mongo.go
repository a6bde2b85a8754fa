package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

// MongoRepo implements Repo on a MongoDB "users" collection, one document per user.
type MongoRepo struct {
	client *mongo.Client
	users  *mongo.Collection
	now    func() time.Time
}

type savedFactDoc struct {
	ThemeID  string    `bson:"themeId"`
	FactText string    `bson:"factText"`
	SavedAt  time.Time `bson:"savedAt"`
}

type preferencesDoc struct {
	FavoriteTheme         string `bson:"favoriteTheme"`
	NotificationsEnabled  bool   `bson:"notificationsEnabled"`
	DailyNotificationTime string `bson:"dailyNotificationTime"`
	Timezone              string `bson:"timezone"`
}

type statsDoc struct {
	FactsViewed          int        `bson:"factsViewed"`
	FactsSaved           int        `bson:"factsSaved"`
	CurrentStreak        int        `bson:"currentStreak"`
	LongestStreak        int        `bson:"longestStreak"`
	LastViewedDay        string     `bson:"lastViewedDay"`
	LastNotificationSent *time.Time `bson:"lastNotificationSent,omitempty"`
}

type quizScoreDoc struct {
	Score          int       `bson:"score"`
	TotalQuestions int       `bson:"totalQuestions"`
	Percentage     int       `bson:"percentage"`
	Theme          string    `bson:"theme"`
	Date           time.Time `bson:"date"`
}

type quizStatsDoc struct {
	TotalQuizzes int            `bson:"totalQuizzes"`
	TotalScore   int            `bson:"totalScore"`
	BestScore    int            `bson:"bestScore"`
	RecentScores []quizScoreDoc `bson:"recentScores"`
}

type userDoc struct {
	ID          int64          `bson:"_id"`
	FirstName   string         `bson:"firstName"`
	Username    string         `bson:"username"`
	SavedFacts  []savedFactDoc `bson:"savedFacts"`
	Preferences preferencesDoc `bson:"preferences"`
	Stats       statsDoc       `bson:"stats"`
	Badges      []string       `bson:"badges"`
	QuizStats   quizStatsDoc   `bson:"quizStats"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
	Version     int64          `bson:"version"`
}

func (d *userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:          d.ID,
		DisplayName: d.FirstName,
		Handle:      d.Username,
		Preferences: domain.Preferences{
			FavoriteTheme:        themeOr(d.Preferences.FavoriteTheme, domain.ThemeRandomMix),
			NotificationsEnabled: d.Preferences.NotificationsEnabled,
			DailyTime:            d.Preferences.DailyNotificationTime,
			Timezone:             d.Preferences.Timezone,
		},
		Stats: domain.Stats{
			FactsViewed:          d.Stats.FactsViewed,
			FactsSaved:           d.Stats.FactsSaved,
			CurrentStreak:        d.Stats.CurrentStreak,
			LongestStreak:        d.Stats.LongestStreak,
			LastViewedDay:        d.Stats.LastViewedDay,
			LastNotificationSent: d.Stats.LastNotificationSent,
		},
		Quiz: domain.QuizStats{
			TotalQuizzes: d.QuizStats.TotalQuizzes,
			TotalScore:   d.QuizStats.TotalScore,
			BestScore:    d.QuizStats.BestScore,
		},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
	for _, f := range d.SavedFacts {
		u.SavedFacts = append(u.SavedFacts, domain.SavedFact{
			Theme:    themeOr(f.ThemeID, domain.ThemeRandomMix),
			FactText: f.FactText,
			SavedAt:  f.SavedAt.UTC(),
		})
	}
	for _, b := range d.Badges {
		u.Badges = append(u.Badges, domain.Badge(b))
	}
	for _, s := range d.QuizStats.RecentScores {
		u.Quiz.RecentScores = append(u.Quiz.RecentScores, domain.QuizResult{
			Score:          s.Score,
			TotalQuestions: s.TotalQuestions,
			Percentage:     s.Percentage,
			Theme:          themeOr(s.Theme, domain.ThemeRandomMix),
			Date:           s.Date.UTC(),
		})
	}
	return u
}

// metricField maps a metric to its document path.
func metricField(m domain.Metric) string {
	switch m {
	case domain.MetricLongestStreak:
		return "stats.longestStreak"
	case domain.MetricFactsSaved:
		return "stats.factsSaved"
	default:
		return "stats.factsViewed"
	}
}

// OpenMongo connects, pings and ensures the indexes used by the scheduler and leaderboards.
func OpenMongo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}

	users := client.Database(database).Collection("users")
	_, err = users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "preferences.notificationsEnabled", Value: 1}}},
		{Keys: bson.D{{Key: "stats.factsViewed", Value: -1}}},
		{Keys: bson.D{{Key: "stats.longestStreak", Value: -1}}},
		{Keys: bson.D{{Key: "stats.factsSaved", Value: -1}}},
		{Keys: bson.D{{Key: "updatedAt", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create indexes: %w", err)
	}

	return &MongoRepo{client: client, users: users, now: time.Now}, nil
}

// Close disconnects the client.
func (r *MongoRepo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *MongoRepo) stamp() time.Time { return r.now().UTC() }

func (r *MongoRepo) findOneAndUpdate(ctx context.Context, filter, update any) (*domain.User, error) {
	var doc userDoc
	err := r.users.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MongoRepo) missingOr(ctx context.Context, id int64, other error) error {
	n, err := r.users.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return other
}

func (r *MongoRepo) EnsureUser(ctx context.Context, id int64, displayName, handle string) (*domain.User, error) {
	now := r.stamp()
	onInsert := bson.M{
		"savedFacts": bson.A{},
		"preferences": preferencesDoc{
			FavoriteTheme: domain.ThemeRandomMix.String(),
			Timezone:      domain.DefaultTimezone,
		},
		"stats":     statsDoc{},
		"badges":    bson.A{},
		"quizStats": quizStatsDoc{RecentScores: []quizScoreDoc{}},
		"createdAt": now,
		"updatedAt": now,
		"version":   int64(0),
	}
	set := bson.M{}
	if displayName != "" {
		set["firstName"] = displayName
	} else {
		onInsert["firstName"] = ""
	}
	if handle != "" {
		set["username"] = handle
	} else {
		onInsert["username"] = ""
	}
	update := bson.M{"$setOnInsert": onInsert}
	if len(set) > 0 {
		update["$set"] = set
	}

	var doc userDoc
	err := r.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MongoRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	var doc userDoc
	err := r.users.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *MongoRepo) find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]domain.User, error) {
	cur, err := r.users.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(docs))
	for i := range docs {
		res = append(res, *docs[i].toDomain())
	}
	return res, nil
}

func (r *MongoRepo) ListNotifiable(ctx context.Context) ([]domain.User, error) {
	return r.find(ctx,
		bson.M{"preferences.notificationsEnabled": true},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
}

// UpdateStreak matches on version so a concurrent writer turns this into ErrConflict.
func (r *MongoRepo) UpdateStreak(ctx context.Context, id int64, version int64, s domain.Stats) (*domain.User, error) {
	res, err := r.users.UpdateOne(ctx,
		bson.M{"_id": id, "version": version},
		bson.M{
			"$set": bson.M{
				"stats.currentStreak": s.CurrentStreak,
				"stats.longestStreak": s.LongestStreak,
				"stats.lastViewedDay": s.LastViewedDay,
				"updatedAt":           r.stamp(),
			},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, r.missingOr(ctx, id, ErrConflict)
	}
	return r.GetUser(ctx, id)
}

func (r *MongoRepo) AddBadges(ctx context.Context, id int64, badges []domain.Badge) (*domain.User, error) {
	if len(badges) == 0 {
		return r.GetUser(ctx, id)
	}
	ids := make(bson.A, 0, len(badges))
	for _, b := range badges {
		ids = append(ids, string(b))
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"badges": bson.M{"$each": ids}},
		"$set":      bson.M{"updatedAt": r.stamp()},
	})
}

func (r *MongoRepo) IncrementViewed(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"stats.factsViewed": 1, "version": 1},
		"$set": bson.M{"updatedAt": r.stamp()},
	})
}

// SaveFact pushes only when no element with the same theme and text exists.
func (r *MongoRepo) SaveFact(ctx context.Context, id int64, f domain.SavedFact) (*domain.User, error) {
	savedAt := f.SavedAt
	if savedAt.IsZero() {
		savedAt = r.stamp()
	}
	res, err := r.users.UpdateOne(ctx,
		bson.M{
			"_id": id,
			"savedFacts": bson.M{"$not": bson.M{"$elemMatch": bson.M{
				"themeId":  f.Theme.String(),
				"factText": f.FactText,
			}}},
		},
		bson.M{
			"$push": bson.M{"savedFacts": savedFactDoc{
				ThemeID:  f.Theme.String(),
				FactText: f.FactText,
				SavedAt:  savedAt.UTC(),
			}},
			"$inc": bson.M{"stats.factsSaved": 1, "version": 1},
			"$set": bson.M{"updatedAt": r.stamp()},
		},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, r.missingOr(ctx, id, ErrDuplicateFact)
	}
	return r.GetUser(ctx, id)
}

func (r *MongoRepo) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"stats.lastNotificationSent": at.UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) SetNotifications(ctx context.Context, id int64, enabled bool, dailyTime, tz string) error {
	set := bson.M{
		"preferences.notificationsEnabled": enabled,
		"updatedAt":                        r.stamp(),
	}
	if dailyTime != "" {
		set["preferences.dailyNotificationTime"] = dailyTime
	}
	if tz != "" {
		set["preferences.timezone"] = tz
	}
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) SetFavoriteTheme(ctx context.Context, id int64, th domain.Theme) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"preferences.favoriteTheme": th.String(),
		"updatedAt":                 r.stamp(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordQuizResult keeps the last RecentScoresCap results via $push/$slice.
func (r *MongoRepo) RecordQuizResult(ctx context.Context, id int64, q domain.QuizResult) (domain.QuizStats, error) {
	played := q.Date
	if played.IsZero() {
		played = r.stamp()
	}
	u, err := r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{
			"quizStats.totalQuizzes": 1,
			"quizStats.totalScore":   q.Score,
		},
		"$max": bson.M{"quizStats.bestScore": q.Score},
		"$push": bson.M{"quizStats.recentScores": bson.M{
			"$each": bson.A{quizScoreDoc{
				Score:          q.Score,
				TotalQuestions: q.TotalQuestions,
				Percentage:     q.Percentage,
				Theme:          q.Theme.String(),
				Date:           played.UTC(),
			}},
			"$slice": -domain.RecentScoresCap,
		}},
		"$set": bson.M{"updatedAt": r.stamp()},
	})
	if err != nil {
		return domain.QuizStats{}, err
	}
	return u.Quiz, nil
}

func (r *MongoRepo) TopBy(ctx context.Context, m domain.Metric, since *time.Time, limit int) ([]domain.User, error) {
	filter := bson.M{}
	if since != nil {
		filter["updatedAt"] = bson.M{"$gte": since.UTC()}
	}
	return r.find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: metricField(m), Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)),
	)
}

func (r *MongoRepo) CountGreater(ctx context.Context, m domain.Metric, value int) (int, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{metricField(m): bson.M{"$gt": value}})
	return int(n), err
}

func (r *MongoRepo) CountUsers(ctx context.Context) (int, error) {
	n, err := r.users.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func since(field string, t time.Time) bson.M {
	return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$gte": bson.A{"$" + field, t.UTC()}}, 1, 0}}}
}

func (r *MongoRepo) Summary(ctx context.Context, now time.Time) (Summary, error) {
	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)

	cur, err := r.users.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalUsers":   bson.M{"$sum": 1},
			"totalViewed":  bson.M{"$sum": "$stats.factsViewed"},
			"totalSaved":   bson.M{"$sum": "$stats.factsSaved"},
			"quizzes":      bson.M{"$sum": "$quizStats.totalQuizzes"},
			"activeToday":  since("updatedAt", day),
			"activeWeek":   since("updatedAt", week),
			"newUsersWeek": since("createdAt", week),
		}}},
	})
	if err != nil {
		return Summary{}, err
	}
	var totals []struct {
		TotalUsers   int `bson:"totalUsers"`
		TotalViewed  int `bson:"totalViewed"`
		TotalSaved   int `bson:"totalSaved"`
		Quizzes      int `bson:"quizzes"`
		ActiveToday  int `bson:"activeToday"`
		ActiveWeek   int `bson:"activeWeek"`
		NewUsersWeek int `bson:"newUsersWeek"`
	}
	if err := cur.All(ctx, &totals); err != nil {
		return Summary{}, err
	}

	var s Summary
	if len(totals) > 0 {
		t := totals[0]
		s = Summary{
			TotalUsers:      t.TotalUsers,
			ActiveToday:     t.ActiveToday,
			ActiveWeek:      t.ActiveWeek,
			TotalViewed:     t.TotalViewed,
			TotalSaved:      t.TotalSaved,
			NewUsersWeek:    t.NewUsersWeek,
			QuizzesFinished: t.Quizzes,
		}
	}

	cur, err = r.users.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$unwind", Value: "$savedFacts"}},
		{{Key: "$group", Value: bson.M{"_id": "$savedFacts.themeId", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: 5}},
	})
	if err != nil {
		return Summary{}, err
	}
	var themes []struct {
		ID    string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cur.All(ctx, &themes); err != nil {
		return Summary{}, err
	}
	for _, th := range themes {
		s.TopSavedThemes = append(s.TopSavedThemes, ThemeCount{
			Theme: themeOr(th.ID, domain.ThemeRandomMix),
			Count: th.Count,
		})
	}
	return s, nil
}
