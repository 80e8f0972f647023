package client

import "time"

// Registration is the host's record of a client it may select.
type Registration struct {
	ClientID     string    `json:"client_id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Available    bool      `json:"available"`
	LastSeen     time.Time `json:"last_seen"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Eligible reports whether the client may be selected. A zero liveness
// window disables the heartbeat check.
func (r Registration) Eligible(now time.Time, liveness time.Duration) bool {
	if !r.Available {
		return false
	}
	if liveness <= 0 {
		return true
	}

	return now.Sub(r.LastSeen) <= liveness
}

type RegistrationPage struct {
	Offset  uint64         `json:"offset"`
	Limit   uint64         `json:"limit"`
	Total   uint64         `json:"total"`
	Clients []Registration `json:"clients"`
}

type PresenceStatus string

const (
	Online  PresenceStatus = "online"
	Alive   PresenceStatus = "alive"
	Offline PresenceStatus = "offline"
)

// Presence is published by clients over MQTT.
type Presence struct {
	ClientID string         `json:"client_id"`
	Name     string         `json:"name,omitempty"`
	Address  string         `json:"address,omitempty"`
	Status   PresenceStatus `json:"status"`
}
