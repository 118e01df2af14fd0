package e2e_test

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/sporelabs/sporeverse/internal/api"
	"github.com/sporelabs/sporeverse/internal/config"
	"github.com/sporelabs/sporeverse/internal/factory"
	"github.com/sporelabs/sporeverse/internal/services/credential"
	"github.com/sporelabs/sporeverse/internal/testutil"
)

// frame is the envelope of every server-to-client message
type frame struct {
	Type    string `json:"type"`
	Room    room   `json:"room"`
	Message string `json:"message"`
	Sender  string `json:"sender"`
}

type room struct {
	Name       string            `json:"name"`
	Background string            `json:"background"`
	Players    map[string]player `json:"players"`
}

type player struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Label  string  `json:"label"`
	Avatar string  `json:"avatar"`
}

type testEnv struct {
	server *httptest.Server
	app    *factory.App
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	// Memory storage and no RPC endpoints, so the gated room denies everyone
	app, err := factory.New(config.Config{Storage: config.StorageMemory}, testutil.NopLogger())
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Credentials: app.Credentials,
		Socket:      app.Socket,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		server.Close()
		_ = app.Close()
	})

	return &testEnv{server: server, app: app}
}

func (e *testEnv) socketURL() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
}

// login runs the wallet handshake over HTTP and returns the session key
func (e *testEnv) login(t *testing.T, wallet *ecdsa.PrivateKey) (string, string) {
	t.Helper()

	address := crypto.PubkeyToAddress(wallet.PublicKey).Hex()

	resp, err := http.Get(e.server.URL + "/nonce/" + address)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var nonceBody struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nonceBody))

	digest := accounts.TextHash([]byte(credential.ChallengeMessage(nonceBody.Nonce)))
	sig, err := crypto.Sign(digest, wallet)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	loginBody := `{"address":"` + address + `","signature":"` + hex.EncodeToString(sig) + `"}`
	loginResp, err := http.Post(e.server.URL+"/login", "application/json", strings.NewReader(loginBody))
	require.NoError(t, err)
	defer func() { _ = loginResp.Body.Close() }()
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	var keyBody struct {
		Key string `json:"key"`
	}
	require.NoError(t, json.NewDecoder(loginResp.Body).Decode(&keyBody))
	require.NotEmpty(t, keyBody.Key)

	return keyBody.Key, strings.ToLower(address)
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(e.socketURL(), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// nextFrame reads one frame with a deadline
func nextFrame(t *testing.T, conn *websocket.Conn) (frame, bool) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		return frame{}, false
	}
	return f, true
}

// waitForTick reads frames until a tick satisfies the predicate
func waitForTick(t *testing.T, conn *websocket.Conn, match func(room) bool) room {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		f, ok := nextFrame(t, conn)
		if !ok {
			break
		}
		if f.Type == "tick" && match(f.Room) {
			return f.Room
		}
	}
	t.Fatal("did not receive expected tick")
	return room{}
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var f frame
	err := conn.ReadJSON(&f)
	if err == nil {
		t.Fatalf("unexpectedly received frame: %+v", f)
	}
}

func TestLoginAndPresenceFlow(t *testing.T) {
	env := newTestEnv(t)

	wallet, err := crypto.GenerateKey()
	require.NoError(t, err)
	key, address := env.login(t, wallet)

	conn := env.dial(t)
	send(t, conn, map[string]any{"type": "join", "roomName": "public", "key": key})

	snapshot := waitForTick(t, conn, func(r room) bool {
		_, ok := r.Players[address]
		return ok
	})
	require.Equal(t, "Spore Vilage", snapshot.Name)
	require.Equal(t, 600.0, snapshot.Players[address].X)
	require.Equal(t, 500.0, snapshot.Players[address].Y)
	require.NotEmpty(t, snapshot.Players[address].Avatar)

	send(t, conn, map[string]any{"type": "move", "x": 10, "y": -5})
	waitForTick(t, conn, func(r room) bool {
		p, ok := r.Players[address]
		return ok && p.X == 610 && p.Y == 495
	})

	send(t, conn, map[string]any{"type": "updateName", "name": "Zed"})
	waitForTick(t, conn, func(r room) bool {
		return r.Players[address].Label == "Zed"
	})

	send(t, conn, map[string]any{"type": "sendMessage", "message": "gm spores"})
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.True(t, time.Now().Before(deadline), "did not receive chat frame")
		f, ok := nextFrame(t, conn)
		require.True(t, ok)
		if f.Type == "message" {
			require.Equal(t, "gm spores", f.Message)
			require.Equal(t, "Zed", f.Sender)
			break
		}
	}
}

func TestTwoClientsShareARoom(t *testing.T) {
	env := newTestEnv(t)

	walletA, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyA, addressA := env.login(t, walletA)

	walletB, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyB, addressB := env.login(t, walletB)

	connA := env.dial(t)
	send(t, connA, map[string]any{"type": "join", "roomName": "public", "key": keyA})
	waitForTick(t, connA, func(r room) bool {
		_, ok := r.Players[addressA]
		return ok
	})

	connB := env.dial(t)
	send(t, connB, map[string]any{"type": "join", "roomName": "public", "key": keyB})

	// Both clients converge on a snapshot with both players
	for _, conn := range []*websocket.Conn{connA, connB} {
		waitForTick(t, conn, func(r room) bool {
			_, hasA := r.Players[addressA]
			_, hasB := r.Players[addressB]
			return hasA && hasB
		})
	}

	// B's departure reaches A
	require.NoError(t, connB.Close())
	waitForTick(t, connA, func(r room) bool {
		_, hasB := r.Players[addressB]
		return !hasB
	})
}

func TestRoomSwitchLeavesOldRoom(t *testing.T) {
	env := newTestEnv(t)

	wallet, err := crypto.GenerateKey()
	require.NoError(t, err)
	key, address := env.login(t, wallet)

	watcherWallet, err := crypto.GenerateKey()
	require.NoError(t, err)
	watcherKey, watcherAddress := env.login(t, watcherWallet)

	watcher := env.dial(t)
	send(t, watcher, map[string]any{"type": "join", "roomName": "public", "key": watcherKey})
	waitForTick(t, watcher, func(r room) bool {
		_, ok := r.Players[watcherAddress]
		return ok
	})

	hopper := env.dial(t)
	send(t, hopper, map[string]any{"type": "join", "roomName": "public", "key": key})
	waitForTick(t, watcher, func(r room) bool {
		_, ok := r.Players[address]
		return ok
	})

	send(t, hopper, map[string]any{"type": "join", "roomName": "vip", "key": key})

	// The watcher sees the hopper vanish from public
	waitForTick(t, watcher, func(r room) bool {
		_, ok := r.Players[address]
		return !ok
	})

	// The hopper lands in the vip room at the spawn point
	snapshot := waitForTick(t, hopper, func(r room) bool {
		return r.Name == "Spore Hall"
	})
	require.Equal(t, 600.0, snapshot.Players[address].X)
}

func TestGatedRoomDeniesWithoutTokens(t *testing.T) {
	env := newTestEnv(t)

	wallet, err := crypto.GenerateKey()
	require.NoError(t, err)
	key, address := env.login(t, wallet)

	conn := env.dial(t)
	send(t, conn, map[string]any{"type": "join", "roomName": "tracer", "key": key})

	// The connection stays usable and the first tick it ever sees is for the
	// open room, since the denied join produced no frames
	send(t, conn, map[string]any{"type": "join", "roomName": "public", "key": key})
	f, ok := nextFrame(t, conn)
	require.True(t, ok)
	require.Equal(t, "tick", f.Type)
	require.Equal(t, "Spore Vilage", f.Room.Name)
	require.Contains(t, f.Room.Players, address)

	snapshot, found := env.app.Coordinator.RoomSnapshot("tracer")
	require.True(t, found)
	require.Empty(t, snapshot.Players)
}

func TestJoinWithBadKeyIsSilent(t *testing.T) {
	env := newTestEnv(t)

	conn := env.dial(t)
	send(t, conn, map[string]any{"type": "join", "roomName": "public", "key": "not-a-key"})

	expectNoFrame(t, conn)
}
