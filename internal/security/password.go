package security

import (
	"context"
	"errors"

	"github.com/jjinnspecs/authhub/internal/observability"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrPasswordMismatch means the password was wrong. Any other non-nil
// error from Compare means the comparison itself could not run (for
// example a malformed stored hash) and must be treated as internal,
// never as bad credentials.
var ErrPasswordMismatch = errors.New("password does not match")

// Hasher runs bcrypt under a weighted semaphore so a burst of signups or
// logins cannot monopolize CPU and starve request acceptance.
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
	prom *observability.Prom
}

func NewHasher(cost int, maxInFlight int, prom *observability.Prom) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	if maxInFlight < 1 {
		maxInFlight = 1
	}

	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxInFlight)),
		prom: prom,
	}
}

// Hash derives a bcrypt hash from a plaintext password. The cost is
// encoded in the hash itself, so later compares stay valid if the
// configured cost changes.
func (h *Hasher) Hash(ctx context.Context, plain string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	var hash []byte

	err := h.prom.ObserveHash("hash", func() error {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(plain), h.cost)
		return err
	})

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Compare checks a plaintext password against a stored hash.
func (h *Hasher) Compare(ctx context.Context, hash, plain string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	err := h.prom.ObserveHash("compare", func() error {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	})

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}

	return err
}
