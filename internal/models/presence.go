package models

import "time"

// Presence is the ephemeral record of one character session: who is active,
// as which character, and in which working directory. Stored with a TTL and
// refreshed by heartbeats.
type Presence struct {
	Username   string    `json:"username"`
	Charname   string    `json:"charname"`
	WorkingDir string    `json:"working_dir"`
	IsActive   bool      `json:"is_active"`
	LastSeen   time.Time `json:"last_seen"`
}
