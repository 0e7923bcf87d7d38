// Package domain contains core concepts of the gateway.
// No runtime, network, or storage logic should be added here.
package domain

// RoomID identifies a chat (direct or group), the unit of fan-out.
type RoomID string

// Identity is established once at connection time from the verified token
// and stays immutable for the lifetime of that connection.
type Identity struct {
	ID       string
	Username string
}
