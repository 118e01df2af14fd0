package redis

import (
	"fmt"

	"github.com/sporelabs/sporeverse/internal/model"
)

// Key prefix for all presence-related data
const keyPrefix = "spore"

// profileKey returns the redis key for a known player profile
func profileKey(address model.Address) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, address)
}
