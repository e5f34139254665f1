// Package models defines the data structures used for API responses and database persistence.
package models

import "time"

// ServerStatus is the durable configuration and last-observed state of the
// community game server. A deployment tracks exactly one server, so the table
// holds a single row seeded at first boot.
type ServerStatus struct {
	LastUpdated       time.Time `json:"last_updated"`
	ServerName        string    `json:"server_name"`
	ServerDescription string    `json:"server_description"`
	ServerIP          string    `json:"server_ip"`
	ServerPort        int       `json:"server_port"`
	MaxPlayers        int       `json:"max_players"`
	CurrentPlayers    int       `json:"current_players"`
	IsOnline          bool      `json:"is_online"`
}

// StatusResponse is the JSON payload served by GET /api/server/status.
//
// Cached marks a stale-but-known-good snapshot returned after a failed
// refetch; Fallback marks a manufactured offline record returned when no
// snapshot was ever captured. Both are false on a live response.
type StatusResponse struct {
	ServerName        string `json:"server_name"`
	ServerDescription string `json:"server_description"`
	ConnectURL        string `json:"connect_url"`
	ConnectCode       string `json:"connect_code"`
	ServerCode        string `json:"server_code"`
	MaxPlayers        int    `json:"max_players"`
	CurrentPlayers    int    `json:"current_players"`
	IsOnline          bool   `json:"is_online"`
	GameType          string `json:"game_type"`
	MapName           string `json:"map_name"`
	LastUpdated       string `json:"last_updated"`
	Cached            bool   `json:"cached,omitempty"`
	Fallback          bool   `json:"fallback,omitempty"`
}
