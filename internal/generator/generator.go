package generator

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/logger"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Auto-generated codes are always exactly 6 characters, independent of the
// 6-8 range accepted for custom codes. 62^6 candidates make collisions rare.
const codeLength = 6

// DefaultMaxAttempts bounds the collision retry loop in GenerateUnique.
const DefaultMaxAttempts = 3

// ExistsFunc reports whether a candidate code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces random alphanumeric short codes.
type Generator struct {
	log        *logger.Logger
	collisions atomic.Int64
}

// New creates a code generator. log may be nil.
func New(log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{log: log}
}

// Generate draws a 6-character code uniformly from the 62-character
// alphanumeric alphabet using crypto/rand.
func (g *Generator) Generate() string {
	b := make([]byte, codeLength)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand reading from the OS entropy source does not fail
			// in practice; treat it as unrecoverable.
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = alphabet[n.Int64()]
	}

	return string(b)
}

// GenerateUnique returns the first generated candidate for which exists
// reports false. After maxAttempts colliding candidates it returns
// errors.ErrGenerationExhausted; at 62^6 candidates that indicates transient
// contention rather than bad input, so callers surface it as a retryable
// server-side failure. A non-positive maxAttempts falls back to
// DefaultMaxAttempts.
func (g *Generator) GenerateUnique(ctx context.Context, exists ExistsFunc, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate := g.Generate()

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking code existence: %w", err)
		}
		if !taken {
			return candidate, nil
		}

		g.collisions.Add(1)
		g.log.Debug("code collision",
			"candidate", candidate,
			"attempt", attempt,
			"total_collisions", g.collisions.Load(),
		)
	}

	return "", fmt.Errorf("%w: %d attempts collided", errors.ErrGenerationExhausted, maxAttempts)
}

// Collisions returns the number of collisions observed since startup.
func (g *Generator) Collisions() int64 {
	return g.collisions.Load()
}
