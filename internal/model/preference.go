package model

import (
	"fmt"
	"strings"
)

// Preference is a soft time-of-day ranking hint. It never filters.
type Preference string

const (
	PreferenceNone      Preference = ""
	PreferenceMorning   Preference = "morning"
	PreferenceAfternoon Preference = "afternoon"
	PreferenceEvening   Preference = "evening"
)

// hour bands, [from, to)
var preferenceBands = map[Preference][2]int{
	PreferenceMorning:   {8, 12},
	PreferenceAfternoon: {12, 17},
	PreferenceEvening:   {17, 21},
}

func ParsePreference(s string) (Preference, error) {
	p := Preference(strings.ToLower(strings.TrimSpace(s)))
	if p == PreferenceNone {
		return PreferenceNone, nil
	}
	if _, ok := preferenceBands[p]; !ok {
		return PreferenceNone, fmt.Errorf("unknown preference %q", s)
	}
	return p, nil
}

// MatchesHour reports whether hour falls in the preference band.
// PreferenceNone matches nothing.
func (p Preference) MatchesHour(hour int) bool {
	band, ok := preferenceBands[p]
	if !ok {
		return false
	}
	return hour >= band[0] && hour < band[1]
}
