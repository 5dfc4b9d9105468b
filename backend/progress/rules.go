package progress

import (
	"time"

	"learnhub/backend/models"
)

const (
	DefaultDurationMinutes = 15

	xpHigh = 150
	xpMid  = 100
	xpBase = 50
)

// XPForScore is the experience awarded for one completion. 90 and 70 belong to the higher tier.
func XPForScore(score int) int {
	switch {
	case score >= 90:
		return xpHigh
	case score >= 70:
		return xpMid
	default:
		return xpBase
	}
}

// DateKey formats t as the YYYY-MM-DD calendar date in its own location.
func DateKey(t time.Time) string {
	return t.Format(models.DateLayout)
}

// NextStreak returns the current streak after an activity on today.
// Activity already logged today keeps the streak, activity yesterday extends it,
// anything else starts a new streak of one day.
func NextStreak(stats models.UserStats, today time.Time) int {
	if stats.LastActivityDate == nil {
		return 1
	}
	last := *stats.LastActivityDate
	switch last {
	case DateKey(today):
		return stats.CurrentStreak
	case DateKey(yesterday(today)):
		return stats.CurrentStreak + 1
	default:
		return 1
	}
}

// applyCompletion is the read-modify-write applied to the stats row for one completion.
func applyCompletion(stats models.UserStats, xp int, now time.Time) models.UserStats {
	next := stats
	next.TotalXP += xp
	next.TotalLessonsCompleted++
	next.CurrentStreak = NextStreak(stats, now)
	if next.CurrentStreak > next.MaxStreak {
		next.MaxStreak = next.CurrentStreak
	}
	today := DateKey(now)
	next.LastActivityDate = &today
	return next
}

// WeekStart is Monday 00:00 of the week containing now, in now's location.
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// WeeklyActivity marks, Monday first, the days of the current week with at least one session.
// Session times are read in now's location.
func WeeklyActivity(sessions []models.LearningSession, now time.Time) [7]bool {
	var week [7]bool
	start := WeekStart(now)
	end := start.AddDate(0, 0, 7)
	for _, s := range sessions {
		at := s.StartedAt.In(now.Location())
		if at.Before(start) || !at.Before(end) {
			continue
		}
		week[(int(at.Weekday())+6)%7] = true
	}
	return week
}

func yesterday(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-1, 12, 0, 0, 0, t.Location())
}
