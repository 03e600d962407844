// Package chat implements real-time messaging and presence for the station.
//
// It keeps WebSocket lifecycle, room membership, and fan-out isolated from
// the rest of the platform so user administration and inventory services
// remain the source of truth for identity and records.
package chat
