// Package guardian decides whether billing and care notifications for a user
// go to the user or to a registered legal guardian.
package guardian

import (
	"strings"
	"time"
)

const adultAge = 18

// Person carries the only user fields guardian resolution depends on.
type Person struct {
	Email       string
	Birthday    *time.Time
	ParentEmail string
}

// IsMinor reports whether the birthday makes the person younger than 18 at now.
// A missing birthday is treated as not-a-minor; that is a permissive default,
// not a verified adult status.
func IsMinor(birthday *time.Time, now time.Time) bool {
	if birthday == nil {
		return false
	}
	return age(*birthday, now) < adultAge
}

// ResolveTarget returns the notification recipient for the person: the parent
// email when the person is a minor and one is registered, otherwise the
// person's own email.
func ResolveTarget(p Person, now time.Time) string {
	parent := strings.TrimSpace(p.ParentEmail)
	if parent != "" && IsMinor(p.Birthday, now) {
		return parent
	}
	return strings.TrimSpace(p.Email)
}

func age(birthday, now time.Time) int {
	birthday = birthday.UTC()
	now = now.UTC()
	years := now.Year() - birthday.Year()
	anniversary := time.Date(now.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if now.Before(anniversary) {
		years--
	}
	return years
}
