package state

import (
	"sync"
	"time"
)

// Manager управляет состояниями пользователей. Sessions idle for longer than
// the TTL read as StateNone and are dropped by Sweep.
type Manager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
	ttl    time.Duration
	now    func() time.Time
}

// NewManager создаёт новый менеджер состояний. ttl <= 0 disables expiry.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		states: make(map[int64]*UserData),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (sm *Manager) expired(d *UserData) bool {
	return sm.ttl > 0 && sm.now().Sub(d.touchedAt) > sm.ttl
}

// live returns the entry for telegramID unless it is missing or expired.
// Caller holds at least the read lock.
func (sm *Manager) live(telegramID int64) (*UserData, bool) {
	d, ok := sm.states[telegramID]
	if !ok || sm.expired(d) {
		return nil, false
	}
	return d, true
}

// entry returns a live entry, creating or resetting it. Caller holds the write lock.
func (sm *Manager) entry(telegramID int64) *UserData {
	d, ok := sm.live(telegramID)
	if !ok {
		d = &UserData{Data: make(map[string]any)}
		sm.states[telegramID] = d
	}
	d.touchedAt = sm.now()
	return d
}

// GetState получает текущее состояние пользователя
func (sm *Manager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if d, ok := sm.live(telegramID); ok {
		return d.State
	}
	return StateNone
}

// SetState устанавливает состояние пользователя
func (sm *Manager) SetState(telegramID int64, state UserState) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if state == StateNone {
		delete(sm.states, telegramID)
		return
	}
	sm.entry(telegramID).State = state
}

// GetData получает временные данные пользователя
func (sm *Manager) GetData(telegramID int64, key string) (any, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if d, ok := sm.live(telegramID); ok {
		value, ok := d.Data[key]
		return value, ok
	}
	return nil, false
}

// SetData устанавливает временные данные пользователя
func (sm *Manager) SetData(telegramID int64, key string, value any) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.entry(telegramID).Data[key] = value
}

// ClearState очищает состояние и данные пользователя
func (sm *Manager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}

// GetAllData получает копию временных данных пользователя
func (sm *Manager) GetAllData(telegramID int64) map[string]any {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	d, ok := sm.live(telegramID)
	if !ok {
		return nil
	}
	dataCopy := make(map[string]any, len(d.Data))
	for k, v := range d.Data {
		dataCopy[k] = v
	}
	return dataCopy
}

// Sweep drops expired sessions and returns how many were removed.
func (sm *Manager) Sweep() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for id, d := range sm.states {
		if sm.expired(d) {
			delete(sm.states, id)
			removed++
		}
	}
	return removed
}

// Len is the number of stored sessions, expired ones included until swept.
func (sm *Manager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.states)
}
