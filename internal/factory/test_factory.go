package factory

import (
	"context"
	"time"

	"github.com/sporelabs/sporeverse/internal/dependencies/mocks"
	"github.com/sporelabs/sporeverse/internal/model"
	"github.com/sporelabs/sporeverse/internal/services/access"
	"github.com/sporelabs/sporeverse/internal/storage/memory"
	"github.com/sporelabs/sporeverse/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom

	// GateAllowed controls who the gated room admits
	GateAllowed map[model.Address]bool
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	allowed := make(map[model.Address]bool)
	gate := access.Func(func(_ context.Context, address model.Address) bool {
		return allowed[address]
	})

	app := newWithDependencies(store, mockClock, mockRandom, gate, testutil.NopLogger())

	return &TestApp{
		App:         app,
		MockClock:   mockClock,
		MockRandom:  mockRandom,
		GateAllowed: allowed,
	}
}
