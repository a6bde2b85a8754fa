package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct {
	db  *sql.DB
	now func() time.Time
}

// Option tweaks a repository at open time.
type Option func(*SQLiteRepo)

// WithClock overrides the clock used for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepo) { r.now = now }
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	r := &SQLiteRepo{db: db, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) stamp() int64 { return r.now().UTC().Unix() }

const userColumns = `
	id, display_name, handle, favorite_theme, notifications_enabled, daily_time, timezone,
	facts_viewed, facts_saved, current_streak, longest_streak, last_viewed_day, last_notification_sent,
	quiz_total, quiz_total_score, quiz_best_score, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		theme      string
		enabledInt int
		lastSent   sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)
	if err := s.Scan(
		&u.ID, &u.DisplayName, &u.Handle, &theme, &enabledInt, &u.Preferences.DailyTime, &u.Preferences.Timezone,
		&u.Stats.FactsViewed, &u.Stats.FactsSaved, &u.Stats.CurrentStreak, &u.Stats.LongestStreak,
		&u.Stats.LastViewedDay, &lastSent,
		&u.Quiz.TotalQuizzes, &u.Quiz.TotalScore, &u.Quiz.BestScore, &createdAt, &updatedAt, &u.Version,
	); err != nil {
		return nil, err
	}
	u.Preferences.FavoriteTheme = themeOr(theme, domain.ThemeRandomMix)
	u.Preferences.NotificationsEnabled = enabledInt != 0
	u.Stats.LastNotificationSent = fromNullInt64(lastSent)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &u, nil
}

// EnsureUser inserts the user with defaults or refreshes its profile fields.
func (r *SQLiteRepo) EnsureUser(ctx context.Context, id int64, displayName, handle string) (*domain.User, error) {
	now := r.stamp()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, handle, favorite_theme, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = CASE WHEN excluded.display_name <> '' THEN excluded.display_name ELSE users.display_name END,
			handle       = CASE WHEN excluded.handle <> '' THEN excluded.handle ELSE users.handle END`,
		id, displayName, handle, domain.ThemeRandomMix.String(), domain.DefaultTimezone, now, now,
	)
	if err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// GetUser returns the user with saved facts, badges and recent quiz scores.
func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.SavedFacts, err = r.savedFacts(ctx, id); err != nil {
		return nil, err
	}
	if u.Badges, err = r.badges(ctx, id); err != nil {
		return nil, err
	}
	if u.Quiz.RecentScores, err = r.recentScores(ctx, id); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *SQLiteRepo) savedFacts(ctx context.Context, id int64) ([]domain.SavedFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT theme, fact_text, saved_at FROM saved_facts WHERE user_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.SavedFact
	for rows.Next() {
		var (
			theme   string
			f       domain.SavedFact
			savedAt int64
		)
		if err := rows.Scan(&theme, &f.FactText, &savedAt); err != nil {
			return nil, err
		}
		f.Theme = themeOr(theme, domain.ThemeRandomMix)
		f.SavedAt = time.Unix(savedAt, 0).UTC()
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) badges(ctx context.Context, id int64) ([]domain.Badge, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT badge FROM user_badges WHERE user_id = ? ORDER BY awarded_at ASC, rowid ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Badge
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		res = append(res, domain.Badge(b))
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) recentScores(ctx context.Context, id int64) ([]domain.QuizResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT score, total, percentage, theme, played_at FROM quiz_scores
		WHERE user_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.QuizResult
	for rows.Next() {
		var (
			q      domain.QuizResult
			theme  string
			played int64
		)
		if err := rows.Scan(&q.Score, &q.TotalQuestions, &q.Percentage, &theme, &played); err != nil {
			return nil, err
		}
		q.Theme = themeOr(theme, domain.ThemeRandomMix)
		q.Date = time.Unix(played, 0).UTC()
		res = append(res, q)
	}
	return res, rows.Err()
}

// listUsers runs a users query and scans base rows only (no saved facts, badges or scores).
func (r *SQLiteRepo) listUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// ListNotifiable returns users with notifications enabled, ordered by id.
func (r *SQLiteRepo) ListNotifiable(ctx context.Context) ([]domain.User, error) {
	return r.listUsers(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE notifications_enabled = 1
		ORDER BY id ASC`)
}

func (r *SQLiteRepo) exists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// missingOr maps a zero-row update to ErrNotFound, or to other when the row exists.
func (r *SQLiteRepo) missingOr(ctx context.Context, id int64, other error) error {
	ok, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return other
}

// UpdateStreak is a compare-and-swap on version.
func (r *SQLiteRepo) UpdateStreak(ctx context.Context, id int64, version int64, s domain.Stats) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET current_streak = ?, longest_streak = ?, last_viewed_day = ?,
		    version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		s.CurrentStreak, s.LongestStreak, s.LastViewedDay, r.stamp(), id, version,
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, r.missingOr(ctx, id, ErrConflict)
	}
	return r.GetUser(ctx, id)
}

// AddBadges inserts badges not yet owned. Existing ones are left untouched.
func (r *SQLiteRepo) AddBadges(ctx context.Context, id int64, badges []domain.Badge) (*domain.User, error) {
	ok, err := r.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if len(badges) > 0 {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		now := r.stamp()
		for _, b := range badges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_badges (user_id, badge, awarded_at) VALUES (?, ?, ?)
				ON CONFLICT(user_id, badge) DO NOTHING`,
				id, string(b), now,
			); err != nil {
				_ = tx.Rollback()
				return nil, err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET updated_at = ? WHERE id = ?`, now, id); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
	}
	return r.GetUser(ctx, id)
}

// IncrementViewed bumps facts_viewed atomically.
func (r *SQLiteRepo) IncrementViewed(ctx context.Context, id int64) (*domain.User, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET facts_viewed = facts_viewed + 1, version = version + 1, updated_at = ?
		WHERE id = ?`,
		r.stamp(), id,
	)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, ErrNotFound
	}
	return r.GetUser(ctx, id)
}

// SaveFact appends a saved fact unless (theme, text) is already present.
func (r *SQLiteRepo) SaveFact(ctx context.Context, id int64, f domain.SavedFact) (*domain.User, error) {
	ok, err := r.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	savedAt := f.SavedAt
	if savedAt.IsZero() {
		savedAt = r.now()
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO saved_facts (user_id, theme, fact_text, saved_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, theme, fact_text) DO NOTHING`,
		id, f.Theme.String(), f.FactText, savedAt.UTC().Unix(),
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if n == 0 {
		_ = tx.Rollback()
		return nil, ErrDuplicateFact
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE users
		SET facts_saved = facts_saved + 1, version = version + 1, updated_at = ?
		WHERE id = ?`,
		r.stamp(), id,
	); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// MarkNotified records the delivery timestamp of the daily drop.
func (r *SQLiteRepo) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET last_notification_sent = ? WHERE id = ?`,
		toNullInt64(&at), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNotifications toggles the daily drop and stores its time and timezone.
// An empty dailyTime or tz keeps the stored value.
func (r *SQLiteRepo) SetNotifications(ctx context.Context, id int64, enabled bool, dailyTime, tz string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET notifications_enabled = ?,
		    daily_time = CASE WHEN ? <> '' THEN ? ELSE daily_time END,
		    timezone   = CASE WHEN ? <> '' THEN ? ELSE timezone END,
		    updated_at = ?
		WHERE id = ?`,
		boolToInt(enabled), dailyTime, dailyTime, tz, tz, r.stamp(), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFavoriteTheme stores the preferred theme.
func (r *SQLiteRepo) SetFavoriteTheme(ctx context.Context, id int64, th domain.Theme) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET favorite_theme = ?, updated_at = ? WHERE id = ?`,
		th.String(), r.stamp(), id,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordQuizResult folds a finished quiz into the aggregates and trims the recent list.
func (r *SQLiteRepo) RecordQuizResult(ctx context.Context, id int64, q domain.QuizResult) (domain.QuizStats, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.QuizStats{}, err
	}
	now := r.stamp()
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET quiz_total = quiz_total + 1,
		    quiz_total_score = quiz_total_score + ?,
		    quiz_best_score = MAX(quiz_best_score, ?),
		    updated_at = ?
		WHERE id = ?`,
		q.Score, q.Score, now, id,
	)
	if err != nil {
		_ = tx.Rollback()
		return domain.QuizStats{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		_ = tx.Rollback()
		return domain.QuizStats{}, err
	} else if n == 0 {
		_ = tx.Rollback()
		return domain.QuizStats{}, ErrNotFound
	}

	played := q.Date
	if played.IsZero() {
		played = r.now()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quiz_scores (user_id, score, total, percentage, theme, played_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, q.Score, q.TotalQuestions, q.Percentage, q.Theme.String(), played.UTC().Unix(),
	); err != nil {
		_ = tx.Rollback()
		return domain.QuizStats{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM quiz_scores
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM quiz_scores WHERE user_id = ? ORDER BY id DESC LIMIT ?
		)`,
		id, id, domain.RecentScoresCap,
	); err != nil {
		_ = tx.Rollback()
		return domain.QuizStats{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.QuizStats{}, err
	}

	u, err := r.GetUser(ctx, id)
	if err != nil {
		return domain.QuizStats{}, err
	}
	return u.Quiz, nil
}

// TopBy orders by the metric column descending; ties fall back to id order.
func (r *SQLiteRepo) TopBy(ctx context.Context, m domain.Metric, since *time.Time, limit int) ([]domain.User, error) {
	col := metricColumn(m)
	if since != nil {
		return r.listUsers(ctx, `
			SELECT `+userColumns+` FROM users
			WHERE updated_at >= ?
			ORDER BY `+col+` DESC, id ASC
			LIMIT ?`,
			since.UTC().Unix(), limit,
		)
	}
	return r.listUsers(ctx, `
		SELECT `+userColumns+` FROM users
		ORDER BY `+col+` DESC, id ASC
		LIMIT ?`,
		limit,
	)
}

// CountGreater counts users strictly above value on the metric.
func (r *SQLiteRepo) CountGreater(ctx context.Context, m domain.Metric, value int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+metricColumn(m)+` > ?`, value,
	).Scan(&n)
	return n, err
}

// CountUsers returns the total number of users.
func (r *SQLiteRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// Summary aggregates bot-wide engagement.
func (r *SQLiteRepo) Summary(ctx context.Context, now time.Time) (Summary, error) {
	var s Summary
	day := now.Add(-24 * time.Hour).UTC().Unix()
	week := now.Add(-7 * 24 * time.Hour).UTC().Unix()

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(facts_viewed), 0),
		       COALESCE(SUM(facts_saved), 0),
		       COALESCE(SUM(quiz_total), 0),
		       COALESCE(SUM(CASE WHEN updated_at >= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN updated_at >= ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM users`,
		day, week, week,
	).Scan(&s.TotalUsers, &s.TotalViewed, &s.TotalSaved, &s.QuizzesFinished,
		&s.ActiveToday, &s.ActiveWeek, &s.NewUsersWeek)
	if err != nil {
		return Summary{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT theme, COUNT(*) AS n FROM saved_facts
		GROUP BY theme ORDER BY n DESC, theme ASC LIMIT 5`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			theme string
			tc    ThemeCount
		)
		if err := rows.Scan(&theme, &tc.Count); err != nil {
			return Summary{}, err
		}
		tc.Theme = themeOr(theme, domain.ThemeRandomMix)
		s.TopSavedThemes = append(s.TopSavedThemes, tc)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	return s, nil
}
