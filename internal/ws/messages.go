package ws

import (
	"encoding/json"

	"github.com/sporelabs/sporeverse/internal/model"
)

// clientEnvelope is the single inbound message shape. Type selects the
// event; the remaining fields are populated per event.
type clientEnvelope struct {
	Type     string  `json:"type"`
	RoomName string  `json:"roomName,omitempty"`
	Key      string  `json:"key,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	Name     string  `json:"name,omitempty"`
	URL      string  `json:"url,omitempty"`
	Message  string  `json:"message,omitempty"`
}

const (
	eventJoin         = "join"
	eventMove         = "move"
	eventUpdateName   = "updateName"
	eventUpdateAvatar = "updateAvatar"
	eventSendMessage  = "sendMessage"

	eventTick    = "tick"
	eventMessage = "message"
)

type tickMessage struct {
	Type string             `json:"type"`
	Room model.RoomSnapshot `json:"room"`
}

type chatMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

func encodeTick(snapshot model.RoomSnapshot) ([]byte, error) {
	return json.Marshal(tickMessage{Type: eventTick, Room: snapshot})
}

func encodeChat(event model.ChatEvent) ([]byte, error) {
	return json.Marshal(chatMessage{Type: eventMessage, Message: event.Message, Sender: event.Sender})
}
