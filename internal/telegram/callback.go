package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/successdanesy/Knowledge-Drop-Bot/internal/domain"
)

var errBadCallback = errors.New("malformed callback data")

type callbackKind int

const (
	cbTheme callbackKind = iota + 1
	cbSave
	cbAction
	cbLeaderboard
	cbNotifTime
	cbNotifDisable
	cbNotifTZ
	cbQuizStart
	cbQuizTheme
	cbQuizAnswer
	cbQuizStats
)

// Actions carried by "action:<name>".
const (
	actionHome        = "home"
	actionStats       = "stats"
	actionViewSaved   = "view_saved"
	actionLeaderboard = "leaderboard"
	actionNotifPrefs  = "notif_prefs"
	actionQuiz        = "quiz"
)

// callback is decoded inline-button data.
type callback struct {
	kind     callbackKind
	theme    domain.Theme
	factID   string
	action   string
	metric   domain.Metric
	period   domain.Period
	clock    domain.Clock
	count    int
	question int
	option   int
}

func parseCallback(data string) (callback, error) {
	parts := strings.Split(data, ":")
	bad := func() (callback, error) { return callback{}, fmt.Errorf("%w: %q", errBadCallback, data) }

	switch parts[0] {
	case "theme":
		if len(parts) != 2 {
			return bad()
		}
		th, err := domain.ParseTheme(parts[1])
		if err != nil {
			return callback{}, err
		}
		return callback{kind: cbTheme, theme: th}, nil

	case "save":
		if len(parts) != 2 || parts[1] == "" {
			return bad()
		}
		return callback{kind: cbSave, factID: parts[1]}, nil

	case "action":
		if len(parts) != 2 {
			return bad()
		}
		switch parts[1] {
		case actionHome, actionStats, actionViewSaved, actionLeaderboard, actionNotifPrefs, actionQuiz:
			return callback{kind: cbAction, action: parts[1]}, nil
		}
		return bad()

	case "leaderboard":
		if len(parts) != 3 {
			return bad()
		}
		m, err := domain.ParseMetric(parts[1])
		if err != nil {
			return callback{}, err
		}
		p, err := domain.ParsePeriod(parts[2])
		if err != nil {
			return callback{}, err
		}
		return callback{kind: cbLeaderboard, metric: m, period: p}, nil

	case "notif":
		switch {
		case len(parts) == 2 && parts[1] == "disable":
			return callback{kind: cbNotifDisable}, nil
		case len(parts) == 2 && parts[1] == "tz":
			return callback{kind: cbNotifTZ}, nil
		case len(parts) == 3:
			c, err := domain.ParseClock(parts[1] + ":" + parts[2])
			if err != nil {
				return callback{}, err
			}
			return callback{kind: cbNotifTime, clock: c}, nil
		}
		return bad()

	case "quiz":
		if len(parts) < 2 {
			return bad()
		}
		switch {
		case parts[1] == "theme" && len(parts) == 2:
			return callback{kind: cbQuizTheme}, nil
		case parts[1] == "stats" && len(parts) == 2:
			return callback{kind: cbQuizStats}, nil
		case parts[1] == "start" && len(parts) == 4:
			n, err := strconv.Atoi(parts[2])
			if err != nil || n <= 0 {
				return bad()
			}
			th, err := domain.ParseTheme(parts[3])
			if err != nil {
				return callback{}, err
			}
			return callback{kind: cbQuizStart, count: n, theme: th}, nil
		case parts[1] == "answer" && len(parts) == 4:
			q, err1 := strconv.Atoi(parts[2])
			o, err2 := strconv.Atoi(parts[3])
			if err1 != nil || err2 != nil {
				return bad()
			}
			return callback{kind: cbQuizAnswer, question: q, option: o}, nil
		}
		return bad()
	}
	return bad()
}
