package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/sporelabs/sporeverse/internal/config"
	"github.com/sporelabs/sporeverse/internal/dependencies/clock"
	"github.com/sporelabs/sporeverse/internal/dependencies/random"
	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/services/access"
	"github.com/sporelabs/sporeverse/internal/services/credential"
	"github.com/sporelabs/sporeverse/internal/services/presence"
	"github.com/sporelabs/sporeverse/internal/storage"
	"github.com/sporelabs/sporeverse/internal/storage/memory"
	redisstorage "github.com/sporelabs/sporeverse/internal/storage/redis"
	"github.com/sporelabs/sporeverse/internal/ws"
)

// TCR token contracts checked by the gated room
const (
	ArbTCRAddress     = "0xa72159fc390f0e3c6d415e658264c7c4051e9b87"
	MainnetTCRAddress = "0x9c4a4204b79dd291d6b6571c5be8bbcd0622f050"
	TokemakTCRAddress = "0x15A629f0665A3Eb97D7aE9A7ce7ABF73AeB79415"
)

// App contains all wired application components
type App struct {
	// Storage
	Profiles storage.ProfileStore

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Credentials *credential.Service
	Coordinator *presence.Coordinator
	Manager     *ws.Manager
	Socket      *ws.Handler

	closers []io.Closer
}

// DefaultRooms returns the fixed room catalogue. The gated room uses the
// given policy; the others are open to anyone with a session key.
func DefaultRooms(gate access.Policy) []presence.RoomConfig {
	return []presence.RoomConfig{
		{
			Key:         "public",
			DisplayName: "Spore Vilage",
			Background:  "https://i.ibb.co/HFj2bKP/Screen-Shot-2021-12-21-at-10-30-43-am-cropped.png",
		},
		{
			Key:         "vip",
			DisplayName: "Spore Hall",
			Background:  "https://i.ibb.co/Xbt039t/spore-vip.png",
		},
		{
			Key:         "tracer",
			DisplayName: "The Sniper Den",
			Background:  "https://i.ibb.co/GQBs6cQ/Screen-Shot-2021-12-21-at-10-23-39-am-removebg-preview-1.png",
			Policy:      gate,
		},
	}
}

// RoomKeys returns the join keys of a room catalogue
func RoomKeys(rooms []presence.RoomConfig) []string {
	keys := make([]string, 0, len(rooms))
	for _, room := range rooms {
		keys = append(keys, room.Key)
	}
	return keys
}

// New creates a new application with all dependencies wired
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.ProfileStore
	var closers []io.Closer

	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.New()
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		redisCfg.ProfileTTL = cfg.ProfileTTL
		redisStore, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		store = redisStore
		closers = append(closers, redisStore)
	default:
		return nil, errors.New("invalid storage: must be 'memory' or 'redis'")
	}

	clk := clock.New()
	rnd := random.New()

	gate, gateClosers, err := buildTokenGate(cfg, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, gateClosers...)

	app := newWithDependencies(store, clk, rnd, gate, logger)
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.ProfileStore,
	clk clock.Clock,
	rnd random.Random,
	gate access.Policy,
	logger *slog.Logger,
) *App {
	credentials := credential.New(rnd, logger)

	rooms := DefaultRooms(gate)
	manager := ws.NewManager(RoomKeys(rooms), logger)
	coordinator := presence.NewCoordinator(rooms, credentials, store, manager, clk, logger)
	socket := ws.NewHandler(manager, coordinator, rnd, logger)

	return &App{
		Profiles:    store,
		Clock:       clk,
		Random:      rnd,
		Credentials: credentials,
		Coordinator: coordinator,
		Manager:     manager,
		Socket:      socket,
	}
}

// buildTokenGate wires the balance checks for the gated room against the
// configured RPC endpoints. With no endpoints configured the room denies
// everyone rather than failing open.
func buildTokenGate(cfg config.Config, logger *slog.Logger) (access.Policy, []io.Closer, error) {
	var policies access.AnyOf
	var closers []io.Closer

	if cfg.MainnetRPCURL != "" {
		client, err := ethclient.Dial(cfg.MainnetRPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing mainnet rpc: %w", err)
		}
		closers = append(closers, closerFunc(func() error { client.Close(); return nil }))
		policies = append(policies, access.NewTokenGate(client, []common.Address{
			common.HexToAddress(MainnetTCRAddress),
			common.HexToAddress(TokemakTCRAddress),
		}, logger))
	}

	if cfg.ArbitrumRPCURL != "" {
		client, err := ethclient.Dial(cfg.ArbitrumRPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dialing arbitrum rpc: %w", err)
		}
		closers = append(closers, closerFunc(func() error { client.Close(); return nil }))
		policies = append(policies, access.NewTokenGate(client, []common.Address{
			common.HexToAddress(ArbTCRAddress),
		}, logger))
	}

	if len(policies) == 0 {
		logger.Warn("no RPC endpoints configured, gated room will deny all entry")
		return access.Func(func(context.Context, model.Address) bool { return false }), nil, nil
	}

	return policies, closers, nil
}

// Close releases held connections
func (a *App) Close() error {
	a.Manager.Close()
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
