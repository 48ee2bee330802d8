package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry(namedJob("stale-pending-transactions"), nil)
	require.NoError(t, registry.Register(namedJob("second")))

	require.Equal(t, []string{"stale-pending-transactions", "second"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndBlankNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(namedJob("a")))
	require.Error(t, registry.Register(namedJob("a")))
	require.Error(t, registry.Register(namedJob("  ")))
	require.Error(t, registry.Register(nil))

	require.Panics(t, func() { NewRegistry(namedJob("x"), namedJob("x")) })
}
