package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": err.Error()})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case NonceResult:
		fmt.Printf("Nonce: %s\n", v.Nonce)
	case LoginResult:
		fmt.Printf("Session key: %s\n", v.Key)
	case KeycheckResult:
		if v.Address == "" {
			fmt.Println("Key is not recognized")
		} else {
			fmt.Printf("Address: %s\n", v.Address)
		}
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
	case RoomState:
		o.printRoomState(v)
	case ChatLine:
		fmt.Printf("[%s] %s\n", v.Sender, v.Message)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// NonceResult response type
type NonceResult struct {
	Nonce string `json:"nonce"`
}

// LoginResult response type
type LoginResult struct {
	Key string `json:"key"`
}

// KeycheckResult response type
type KeycheckResult struct {
	Address string `json:"address"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}

// RoomPlayer is one player in a room state frame
type RoomPlayer struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Label  string  `json:"label"`
	Avatar string  `json:"avatar"`
}

// RoomState is a room snapshot frame
type RoomState struct {
	Name    string                `json:"name"`
	Players map[string]RoomPlayer `json:"players"`
}

// ChatLine is a chat frame
type ChatLine struct {
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

func (o *Output) printRoomState(state RoomState) {
	fmt.Printf("Room: %s (%d players)\n", state.Name, len(state.Players))

	addresses := make([]string, 0, len(state.Players))
	for address := range state.Players {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		player := state.Players[address]
		name := player.Label
		if name == "" {
			name = address
		}
		fmt.Printf("  - %s at (%.0f, %.0f)\n", name, player.X, player.Y)
	}
}
