package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newJoinCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "join <room>",
		Short: "Join a room and stream presence events",
		Long: `Connect to the server's websocket, join the named room, and stream
room state and chat in real-time.

Rooms:
  - public: Spore Vilage, open to everyone with a session key
  - vip:    Spore Hall, open to everyone with a session key
  - tracer: The Sniper Den, requires a TCR token balance

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Key == "" {
				return fmt.Errorf("no session key, log in first or pass --key")
			}
			return streamRoom(args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output frames as JSON lines")

	return cmd
}

// serverFrame is the envelope of every server-to-client message
type serverFrame struct {
	Type    string    `json:"type"`
	Room    RoomState `json:"room"`
	Message string    `json:"message"`
	Sender  string    `json:"sender"`
}

func streamRoom(roomName string, jsonOutput bool) error {
	conn, resp, err := websocket.DefaultDialer.Dial(client.SocketURL(), nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	if resp != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = conn.Close() }()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	join := map[string]string{
		"type":     "join",
		"roomName": roomName,
		"key":      cfg.Key,
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("failed to send join: %w", err)
	}

	if !jsonOutput {
		fmt.Printf("Joining %s (type to chat)\n", roomName)
	}

	// Lines typed on stdin become chat messages
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			msg := map[string]string{"type": "sendMessage", "message": line}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	out := NewOutput(cfg.Output)
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if !jsonOutput {
					fmt.Println("Disconnected")
				}
				return nil
			}
			// Interrupt closes the connection under the reader
			if !jsonOutput {
				fmt.Println("Disconnected")
			}
			return nil
		}

		if jsonOutput {
			fmt.Println(string(payload))
			continue
		}

		var frame serverFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "tick":
			out.Print(frame.Room)
		case "message":
			out.Print(ChatLine{Message: frame.Message, Sender: frame.Sender})
		}
	}
}
