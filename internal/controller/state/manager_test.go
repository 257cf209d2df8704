package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(ttl time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)}
	m := NewManager(ttl)
	m.now = clock.now
	return m, clock
}

func TestManager_StateAndData(t *testing.T) {
	m, _ := newTestManager(time.Minute)

	m.SetState(1, StateAwaitingSlotTimes)
	m.SetData(1, "provider_id", int64(5))

	assert.Equal(t, StateAwaitingSlotTimes, m.GetState(1))
	v, ok := m.GetData(1, "provider_id")
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)

	all := m.GetAllData(1)
	all["provider_id"] = int64(6)
	v, _ = m.GetData(1, "provider_id")
	assert.Equal(t, int64(5), v, "GetAllData must return a copy")

	m.SetState(1, StateNone)
	assert.Equal(t, StateNone, m.GetState(1))
	assert.Zero(t, m.Len())
}

func TestManager_ExpiredSessionsReadAsEmpty(t *testing.T) {
	m, clock := newTestManager(time.Minute)

	m.SetState(1, StateAwaitingSearch)
	m.SetData(1, "k", "v")

	clock.advance(59 * time.Second)
	assert.Equal(t, StateAwaitingSearch, m.GetState(1))

	clock.advance(2 * time.Second)
	assert.Equal(t, StateNone, m.GetState(1))
	_, ok := m.GetData(1, "k")
	assert.False(t, ok)
	assert.Nil(t, m.GetAllData(1))

	// writing to an expired session starts a fresh one
	m.SetData(1, "other", 1)
	_, ok = m.GetData(1, "k")
	assert.False(t, ok)
	assert.Equal(t, StateNone, m.GetState(1))
}

func TestManager_TouchExtendsLifetime(t *testing.T) {
	m, clock := newTestManager(time.Minute)

	m.SetState(1, StateAwaitingServiceType)
	clock.advance(50 * time.Second)
	m.SetData(1, "k", "v")
	clock.advance(50 * time.Second)

	assert.Equal(t, StateAwaitingServiceType, m.GetState(1))
}

func TestManager_Sweep(t *testing.T) {
	m, clock := newTestManager(time.Minute)

	m.SetState(1, StateAwaitingSearch)
	clock.advance(45 * time.Second)
	m.SetState(2, StateAwaitingSearch)
	clock.advance(30 * time.Second)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, StateAwaitingSearch, m.GetState(2))
}

func TestManager_ZeroTTLNeverExpires(t *testing.T) {
	m, clock := newTestManager(0)

	m.SetState(1, StateAwaitingSearch)
	clock.advance(24 * 365 * time.Hour)

	assert.Equal(t, StateAwaitingSearch, m.GetState(1))
	assert.Zero(t, m.Sweep())
}
