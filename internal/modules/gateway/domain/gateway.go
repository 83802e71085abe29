package domain

import (
	"context"
)

// MessageHandler routes raw client envelopes to the game modules.
type MessageHandler interface {
	// HandleMessage handles one message from an authenticated user. Protocol
	// errors (bad envelope, unknown game or command) are returned; game-level
	// rejections are answered by the game module on the private channel.
	HandleMessage(ctx context.Context, userID int64, username string, message []byte) error

	// HandleDisconnect is called after a connection is torn down, with the
	// rooms it occupied.
	HandleDisconnect(userID int64, rooms []string)
}

// Roster is the room membership surface of the WebSocket manager.
type Roster interface {
	Join(userID int64, room string)
	Leave(userID int64, room string)
}
