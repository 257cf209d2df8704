// Package responder maps free-text utterances to replies by keyword. It has no
// booking authority: Respond is pure, and Answer only reads availability
// through a Querier.
package responder

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/Freeeeeet/slot_booking/internal/model"
)

type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentHelp         Intent = "help"
	IntentAvailability Intent = "availability"
	IntentBooking      Intent = "booking"
	IntentEcho         Intent = "echo"
)

// Context is what the responder may know besides the utterance.
type Context struct {
	Now      time.Time
	Location *time.Location
	// ServiceType is used when the utterance names none.
	ServiceType string
}

// Query is an availability lookup the caller should run through QuerySlots.
type Query struct {
	Filter     model.SlotFilter
	Preference model.Preference
	// Label describes the range for the reply, e.g. "tomorrow".
	Label string
}

type Reply struct {
	Intent Intent
	Text   string
	Query  *Query
}

var (
	greetingWords     = []string{"hi", "hello", "hey", "привет", "здравствуйте"}
	helpWords         = []string{"help", "commands", "помощь"}
	availabilityWords = []string{"free", "available", "availability", "slot", "slots", "open", "свободно"}
	bookingWords      = []string{"book", "booking", "reserve", "appointment"}
)

const helpText = "I can look up free slots. Try \"free slots tomorrow morning\" " +
	"or \"available today for dentist\". To book, use /book <slot_id>."

// Respond classifies the utterance. Availability requests come back with a
// Query and no final text; everything else is answered directly.
func Respond(utterance string, c Context) Reply {
	words := tokenize(utterance)

	switch {
	case hasAny(words, availabilityWords):
		q := buildQuery(words, c)
		return Reply{Intent: IntentAvailability, Query: &q}
	case hasAny(words, bookingWords):
		return Reply{
			Intent: IntentBooking,
			Text:   "Ask me for free slots first, then book one with /book <slot_id> (add \"urgent\" for high urgency).",
		}
	case hasAny(words, helpWords):
		return Reply{Intent: IntentHelp, Text: helpText}
	case hasAny(words, greetingWords):
		return Reply{Intent: IntentGreeting, Text: "Hello! " + helpText}
	}

	return Reply{Intent: IntentEcho, Text: "You said: " + strings.TrimSpace(utterance)}
}

func buildQuery(words []string, c Context) Query {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	now := c.Now.In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	q := Query{
		Filter: model.SlotFilter{
			ServiceType: c.ServiceType,
			From:        now,
			To:          startOfDay.Add(24*time.Hour - time.Nanosecond),
		},
		Label: "today",
	}

	switch {
	case slices.Contains(words, "tomorrow") || slices.Contains(words, "завтра"):
		q.Filter.From = startOfDay.Add(24 * time.Hour)
		q.Filter.To = startOfDay.Add(48*time.Hour - time.Nanosecond)
		q.Label = "tomorrow"
	case slices.Contains(words, "week"):
		q.Filter.To = now.Add(7 * 24 * time.Hour)
		q.Label = "this week"
	}

	for _, w := range words {
		if p, err := model.ParsePreference(w); err == nil && p != model.PreferenceNone {
			q.Preference = p
			break
		}
	}

	// "... for dentist"
	for i, w := range words {
		if w == "for" && i+1 < len(words) {
			q.Filter.ServiceType = words[i+1]
			break
		}
	}

	return q
}

// Querier is the read-only availability surface the responder may use.
type Querier interface {
	QuerySlots(ctx context.Context, filter model.SlotFilter, pref model.Preference) ([]model.AnnotatedSlot, error)
}

// Answer runs Respond and, for availability requests, the resulting query.
func Answer(ctx context.Context, utterance string, c Context, q Querier) (Reply, error) {
	reply := Respond(utterance, c)
	if reply.Query == nil {
		return reply, nil
	}

	slots, err := q.QuerySlots(ctx, reply.Query.Filter, reply.Query.Preference)
	if err != nil {
		return reply, fmt.Errorf("query slots: %w", err)
	}
	reply.Text = RenderAvailability(*reply.Query, slots, c.Location)
	return reply, nil
}

const maxListed = 5

// RenderAvailability formats query results as a short text reply.
func RenderAvailability(q Query, slots []model.AnnotatedSlot, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	subject := "free slots"
	if q.Filter.ServiceType != "" {
		subject = "free " + q.Filter.ServiceType + " slots"
	}
	if len(slots) == 0 {
		return fmt.Sprintf("No %s %s.", subject, q.Label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d %s %s:", len(slots), subject, q.Label)
	for i, a := range slots {
		if i == maxListed {
			fmt.Fprintf(&b, "\n...and %d more", len(slots)-maxListed)
			break
		}
		fmt.Fprintf(&b, "\n#%d %s-%s",
			a.Slot.ID,
			a.Slot.Start.In(loc).Format("Mon 15:04"),
			a.Slot.End.In(loc).Format("15:04"),
		)
		if a.Provider != nil && a.Provider.ServiceType != "" {
			fmt.Fprintf(&b, " %s", a.Provider.ServiceType)
		}
		if a.MatchedPreference {
			b.WriteString(" *")
		}
	}
	return b.String()
}

// tokenize folds case after NFKC so "ＦＲＥＥ" and decomposed "й" match the
// keyword lists. Caser is stateful, hence one per call.
func tokenize(s string) []string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasAny(words, candidates []string) bool {
	for _, c := range candidates {
		if slices.Contains(words, c) {
			return true
		}
	}
	return false
}
