package service

// GatewayService is the broadcast surface the game engines publish through.
// Implemented by the gateway's local adapter over the WebSocket manager.
type GatewayService interface {
	// Broadcast sends an event to every connection subscribed to the room.
	Broadcast(room, command string, data interface{})
	// SendToUser sends a private event to one user's connection.
	SendToUser(userID int64, room, command string, data interface{})
}
