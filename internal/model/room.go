package model

// RoomSnapshot is the full current state of a room, pushed to every member on
// each mutating presence event. Its JSON shape is the `tick` payload of the
// wire protocol.
type RoomSnapshot struct {
	Background string             `json:"background"`
	Name       string             `json:"name"`
	Players    map[Address]Player `json:"players"`
}

// ChatEvent is a single chat message fanned out to a room. Sender is the
// player's label when one is known, otherwise the raw address.
type ChatEvent struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}
