package access

import (
	"fmt"
	"strings"

	"vesting-project/models"
)

// Guard gates administrative operations on a single owner fixed at construction.
type Guard struct {
	owner string
}

// NewGuard creates a Guard for owner, which must be a valid address
func NewGuard(owner string) (*Guard, error) {
	normalized, err := models.NormalizeAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	return &Guard{owner: normalized}, nil
}

func (g *Guard) Owner() string {
	return g.owner
}

// Authorize fails with models.ErrUnauthorized unless caller is the owner
func (g *Guard) Authorize(caller string) error {
	if strings.ToLower(strings.TrimSpace(caller)) != g.owner {
		return fmt.Errorf("%w: caller %q is not the owner", models.ErrUnauthorized, caller)
	}
	return nil
}
