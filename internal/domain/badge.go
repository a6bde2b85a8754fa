package domain

// Badge is a permanent achievement marker. Once awarded it is never removed.
type Badge string

const (
	BadgeStreakLeader    Badge = "streak_leader"
	BadgePerfectWeek     Badge = "perfect_week"
	BadgeKnowledgeSeeker Badge = "knowledge_seeker"
	BadgeHistorian       Badge = "historian"
	BadgeCollector       Badge = "collector"
)

const (
	streakBadgeDays    = 7
	knowledgeSeekerMin = 50
	historianMin       = 100
	collectorMinSaved  = 20
)

// Label is the user-facing badge name.
func (b Badge) Label() string {
	switch b {
	case BadgeStreakLeader:
		return "🔥 Streak Leader (7 days)"
	case BadgePerfectWeek:
		return "🎯 Perfect Week (7-day streak)"
	case BadgeKnowledgeSeeker:
		return "🏆 Knowledge Seeker (50 facts)"
	case BadgeHistorian:
		return "📚 Historian (100 facts)"
	case BadgeCollector:
		return "⭐ Collector (20 facts saved)"
	default:
		return string(b)
	}
}

// HasBadge reports whether b is in set.
func HasBadge(set []Badge, b Badge) bool {
	for _, x := range set {
		if x == b {
			return true
		}
	}
	return false
}

// MergeBadges returns set with every badge of add appended once, preserving order.
func MergeBadges(set []Badge, add ...Badge) []Badge {
	out := make([]Badge, 0, len(set)+len(add))
	out = append(out, set...)
	for _, b := range add {
		if !HasBadge(out, b) {
			out = append(out, b)
		}
	}
	return out
}

// EvaluateBadges returns the badges that qualify against s and are not yet owned.
//
// Streak badges fire only when streakAdvanced is set and CurrentStreak is exactly
// 7, so they trigger at the moment the threshold is crossed and never retroactively.
// Counter badges are monotonic thresholds and are checked on every call.
func EvaluateBadges(s Stats, owned []Badge, streakAdvanced bool) []Badge {
	var candidates []Badge
	if streakAdvanced && s.CurrentStreak == streakBadgeDays {
		candidates = append(candidates, BadgeStreakLeader, BadgePerfectWeek)
	}
	if s.FactsViewed >= knowledgeSeekerMin {
		candidates = append(candidates, BadgeKnowledgeSeeker)
	}
	if s.FactsViewed >= historianMin {
		candidates = append(candidates, BadgeHistorian)
	}
	if s.FactsSaved >= collectorMinSaved {
		candidates = append(candidates, BadgeCollector)
	}

	var fresh []Badge
	for _, b := range candidates {
		if !HasBadge(owned, b) {
			fresh = append(fresh, b)
		}
	}
	return fresh
}
