// SPDX-License-Identifier: MIT

package rng_test

import (
	"testing"

	"github.com/katalvlaran/lvmcmc/rng"
	"github.com/stretchr/testify/require"
)

func TestNewZeroSeedPolicy(t *testing.T) {
	a, b := rng.New(0), rng.New(rng.DefaultSeed)
	for i := 0; i < 8; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestMixSeparatesStreams(t *testing.T) {
	require.Equal(t, rng.Mix(42, 3), rng.Mix(42, 3))
	require.NotEqual(t, rng.Mix(42, 0), rng.Mix(42, 1))
	require.NotEqual(t, rng.Mix(1, 7), rng.Mix(2, 7))

	a, b := rng.New(rng.Mix(42, 0)), rng.New(rng.Mix(42, 10))
	require.NotEqual(t, a.Uint64(), b.Uint64())
}
