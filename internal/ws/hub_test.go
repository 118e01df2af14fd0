package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/services/presence"
	"github.com/sporelabs/sporeverse/internal/testutil"
)

func testClient(id presence.ConnID) *Client {
	return &Client{id: id, send: make(chan []byte, sendBufferSize)}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive message")
		return nil
	}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("client unexpectedly received %q", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_RegisterAndBroadcast(t *testing.T) {
	hub := NewHub("public", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := testClient("c1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast([]byte("frame"))

	if msg := receive(t, client); string(msg) != "frame" {
		t.Errorf("client received %q, want %q", msg, "frame")
	}
}

func TestHub_UnregisterLeavesSendChannelOpen(t *testing.T) {
	hub := NewHub("public", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client := testClient("c1")
	hub.Register(client)
	time.Sleep(10 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after unregister, want 0", hub.ClientCount())
	}

	// The client may immediately register with another room's hub, so its
	// send channel must still be usable.
	select {
	case client.send <- []byte("still open"):
	default:
		t.Error("send channel unusable after unregister")
	}
}

func TestHub_BroadcastToMultipleClients(t *testing.T) {
	hub := NewHub("public", testutil.NopLogger())
	go hub.Run()
	defer hub.Close()

	client1 := testClient("c1")
	client2 := testClient("c2")
	client3 := testClient("c3")
	hub.Register(client1)
	hub.Register(client2)
	hub.Register(client3)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast([]byte("frame"))

	for _, client := range []*Client{client1, client2, client3} {
		if msg := receive(t, client); string(msg) != "frame" {
			t.Errorf("client %s received %q, want %q", client.id, msg, "frame")
		}
	}
}

func TestManager_RoomScopedDelivery(t *testing.T) {
	manager := NewManager([]string{"public", "vip"}, testutil.NopLogger())
	defer manager.Close()

	inPublic := testClient("c1")
	inVip := testClient("c2")
	manager.attach(inPublic)
	manager.attach(inVip)

	manager.JoinRoom("c1", "public")
	manager.JoinRoom("c2", "vip")
	time.Sleep(10 * time.Millisecond)

	manager.EmitChat("public", model.ChatEvent{Message: "gm", Sender: "alice"})

	var got chatMessage
	if err := json.Unmarshal(receive(t, inPublic), &got); err != nil {
		t.Fatalf("unmarshal chat frame: %v", err)
	}
	if got.Type != "message" || got.Message != "gm" || got.Sender != "alice" {
		t.Errorf("unexpected chat frame: %+v", got)
	}
	expectSilence(t, inVip)
}

func TestManager_TickFrameShape(t *testing.T) {
	manager := NewManager([]string{"public"}, testutil.NopLogger())
	defer manager.Close()

	client := testClient("c1")
	manager.attach(client)
	manager.JoinRoom("c1", "public")
	time.Sleep(10 * time.Millisecond)

	manager.EmitRoomState("public", model.RoomSnapshot{
		Background: "bg",
		Name:       "Spore Vilage",
		Players: map[model.Address]model.Player{
			"0xabc": {X: 600, Y: 500, Address: "0xabc"},
		},
	})

	var got tickMessage
	if err := json.Unmarshal(receive(t, client), &got); err != nil {
		t.Fatalf("unmarshal tick frame: %v", err)
	}
	if got.Type != "tick" {
		t.Errorf("frame type = %q, want tick", got.Type)
	}
	if got.Room.Name != "Spore Vilage" {
		t.Errorf("room name = %q", got.Room.Name)
	}
	if player, ok := got.Room.Players["0xabc"]; !ok || player.X != 600 {
		t.Errorf("player missing or wrong: %+v", got.Room.Players)
	}
}

func TestManager_RoomHopMovesDelivery(t *testing.T) {
	manager := NewManager([]string{"public", "vip"}, testutil.NopLogger())
	defer manager.Close()

	client := testClient("c1")
	manager.attach(client)
	manager.JoinRoom("c1", "public")
	time.Sleep(10 * time.Millisecond)

	manager.LeaveRoom("c1", "public")
	manager.JoinRoom("c1", "vip")
	time.Sleep(10 * time.Millisecond)

	manager.EmitChat("public", model.ChatEvent{Message: "left behind", Sender: "x"})
	expectSilence(t, client)

	manager.EmitChat("vip", model.ChatEvent{Message: "hello", Sender: "x"})
	receive(t, client)
}

func TestManager_UnknownRoomOrConnIsNoop(t *testing.T) {
	manager := NewManager([]string{"public"}, testutil.NopLogger())
	defer manager.Close()

	manager.JoinRoom("ghost", "public")
	manager.LeaveRoom("ghost", "public")
	manager.JoinRoom("ghost", "atlantis")
	manager.EmitRoomState("atlantis", model.RoomSnapshot{})
	manager.EmitChat("atlantis", model.ChatEvent{})
}
