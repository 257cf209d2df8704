package state

import "time"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// ждём тип услуги после /becomeprovider без аргумента
	StateAwaitingServiceType UserState = "awaiting_service_type"
	// ждём "<start> <end>" после /publish без аргументов
	StateAwaitingSlotTimes UserState = "awaiting_slot_times"
	// ждём "<type|-> <date> [preference]" после /find без аргументов
	StateAwaitingSearch UserState = "awaiting_search"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State     UserState
	Data      map[string]any
	touchedAt time.Time
}
