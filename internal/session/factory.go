package session

import (
	"fmt"
	"math/rand"
	"time"

	"trafficgen/internal/action"
	"trafficgen/internal/config"
	"trafficgen/internal/persona"
	"trafficgen/internal/shop"
)

// Factory builds independent sessions: each gets its own identity, cookie
// jar and random source.
type Factory struct {
	Config  Config
	Profile config.ProfileConfig
	Shop    shop.Options
	Seed    int64 // 0 = time-based
}

// New creates the session for the index-th user.
func (f *Factory) New(index int) (*Session, error) {
	seed := f.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed + int64(index)))

	id, err := persona.New(r, f.Profile)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", index, err)
	}
	client, err := shop.NewClient(f.Shop)
	if err != nil {
		return nil, fmt.Errorf("user %d: %w", index, err)
	}
	return New(f.Config, &action.Actor{Identity: id, Client: client, Rand: r}), nil
}
