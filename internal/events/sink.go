package events

import "time"

const (
	ReservationCreated = "reservation_created"
	ReservationDeleted = "reservation_deleted"
	MonitoringUpdate   = "monitoring_update"
)

// Sink receives domain events. Emit must not block the caller and never
// reports failure; delivery is best effort.
type Sink interface {
	Emit(name string, payload any)
}

// Event is what subscribers of a Hub receive.
type Event struct {
	Name    string    `json:"event"`
	Payload any       `json:"payload"`
	At      time.Time `json:"at"`
}

// Keyed payloads choose their own partition key on keyed transports.
type Keyed interface {
	EventKey() string
}

type Discard struct{}

func (Discard) Emit(string, any) {}

// Fanout forwards every event to each sink in order.
type Fanout []Sink

func (f Fanout) Emit(name string, payload any) {
	for _, s := range f {
		if s != nil {
			s.Emit(name, payload)
		}
	}
}
