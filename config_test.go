package orma_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
)

func TestTrashed(t *testing.T) {
	tests := []struct {
		text string
		want orma.Trashed
	}{
		{"", orma.TrashedExcept},
		{"except", orma.TrashedExcept},
		{"ONLY", orma.TrashedOnly},
		{" with ", orma.TrashedWith},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var got orma.Trashed
			require.NoError(t, got.UnmarshalText([]byte(tt.text)))
			assert.Equal(t, tt.want, got)
		})
	}

	var v orma.Trashed
	assert.Error(t, v.UnmarshalText([]byte("sometimes")))
	b, err := orma.TrashedOnly.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "only", string(b))
	assert.Equal(t, "Trashed(9)", orma.Trashed(9).String())
}

func TestNewConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c := orma.NewConfig("sqlite")
		assert.Equal(t, "sqlite", c.Dialect)
		assert.Same(t, slog.Default(), c.Logger)
		require.NotNil(t, c.Now)
		assert.Equal(t, time.UTC, c.Now().Location())
		assert.Equal(t, orma.TrashedExcept, c.Trashed)
	})

	t.Run("Options", func(t *testing.T) {
		clock := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)
		logger := slog.New(slog.DiscardHandler)
		c := orma.NewConfig("sqlserver",
			orma.WithLegacyPagination(true),
			orma.WithMaxParams(100),
			orma.WithForeignStubs(true),
			orma.WithForeignDepth(2),
			orma.WithForeignBatchSize(50),
			orma.WithTrashed(orma.TrashedWith),
			orma.WithLogger(logger),
			orma.WithClock(func() time.Time { return clock }),
		)
		assert.True(t, c.LegacyPagination)
		assert.Equal(t, 100, c.MaxParams)
		assert.True(t, c.CreateForeignIfNoDepth)
		assert.Equal(t, 2, c.ForeignDepth)
		assert.Equal(t, 50, c.ForeignBatchSize)
		assert.Equal(t, orma.TrashedWith, c.Trashed)
		assert.Same(t, logger, c.Logger)
		assert.Equal(t, clock, c.Now())
	})
}
