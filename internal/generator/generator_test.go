package generator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/tmakar/linkshort/internal/errors"
	"github.com/tmakar/linkshort/internal/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func TestGenerate_ProducesCorrectLength(t *testing.T) {
	gen := generator.New(nil)

	for i := 0; i < 1000; i++ {
		code := gen.Generate()
		assert.Len(t, code, 6, "code should be 6 characters")
	}
}

func TestGenerate_ProducesOnlyAlphanumeric(t *testing.T) {
	gen := generator.New(nil)

	for i := 0; i < 1000; i++ {
		code := gen.Generate()
		for _, c := range code {
			assert.True(t, strings.ContainsRune(alphabet, c),
				"code %q contains invalid char %q", code, string(c))
		}
	}
}

func TestGenerate_ProducesUniqueCodesStatistically(t *testing.T) {
	gen := generator.New(nil)
	seen := make(map[string]bool)
	count := 10000

	for i := 0; i < count; i++ {
		seen[gen.Generate()] = true
	}

	// With 62^6 possible combinations, 10000 codes should all be unique.
	assert.Len(t, seen, count, "all generated codes should be unique")
}

func TestGenerateUnique_FirstCandidateFree(t *testing.T) {
	gen := generator.New(nil)

	code, err := gen.GenerateUnique(context.Background(), neverExists, 3)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, int64(0), gen.Collisions())
}

func TestGenerateUnique_RetriesOnCollision(t *testing.T) {
	gen := generator.New(nil)

	// First two candidates collide, third is free.
	calls := 0
	exists := func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls <= 2, nil
	}

	code, err := gen.GenerateUnique(context.Background(), exists, 3)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(2), gen.Collisions())
}

func TestGenerateUnique_Exhausted(t *testing.T) {
	gen := generator.New(nil)

	calls := 0
	alwaysTaken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := gen.GenerateUnique(context.Background(), alwaysTaken, 3)
	assert.ErrorIs(t, err, errors.ErrGenerationExhausted)
	assert.Equal(t, 3, calls)
	assert.Equal(t, int64(3), gen.Collisions())
}

func TestGenerateUnique_ExistsCheckError(t *testing.T) {
	gen := generator.New(nil)

	boom := assert.AnError
	failing := func(ctx context.Context, code string) (bool, error) {
		return false, boom
	}

	_, err := gen.GenerateUnique(context.Background(), failing, 3)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, errors.ErrGenerationExhausted)
}

func TestGenerateUnique_DefaultAttempts(t *testing.T) {
	gen := generator.New(nil)

	calls := 0
	alwaysTaken := func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := gen.GenerateUnique(context.Background(), alwaysTaken, 0)
	assert.ErrorIs(t, err, errors.ErrGenerationExhausted)
	assert.Equal(t, generator.DefaultMaxAttempts, calls)
}

func neverExists(ctx context.Context, code string) (bool, error) {
	return false, nil
}
