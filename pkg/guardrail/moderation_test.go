package guardrail

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeration(t *testing.T) {
	t.Run("should reject invalid patterns", func(t *testing.T) {
		_, err := NewModeration(nil, []string{"("})
		assert.ErrorContains(t, err, "invalid pattern")
	})

	t.Run("should be disabled without rules", func(t *testing.T) {
		m, err := NewModeration([]string{" "}, nil)
		require.NoError(t, err)
		assert.False(t, m.Enabled())
	})

	t.Run("should trip on blocked keywords case-insensitively", func(t *testing.T) {
		m, err := NewModeration([]string{"Smuggle"}, nil)
		require.NoError(t, err)
		assert.True(t, m.Enabled())

		result, err := m.Guardrail().Check(context.Background(), nil, nil, "how do I smuggle cash to Paris")
		require.NoError(t, err)
		assert.True(t, result.TripwireTriggered)
		assert.Equal(t, "prompt contains blocked keyword: Smuggle", result.Info.(*ModerationVerdict).Reason)
	})

	t.Run("should trip on blocked patterns", func(t *testing.T) {
		m, err := NewModeration(nil, []string{`\d{16}`})
		require.NoError(t, err)

		result, err := m.Guardrail().Check(context.Background(), nil, nil, "card 4111111111111111")
		require.NoError(t, err)
		assert.True(t, result.TripwireTriggered)
	})

	t.Run("should pass clean input", func(t *testing.T) {
		m, err := NewModeration([]string{"smuggle"}, []string{`\d{16}`})
		require.NoError(t, err)

		result, err := m.Guardrail().Check(context.Background(), nil, nil, "3 days in Tokyo")
		require.NoError(t, err)
		assert.False(t, result.TripwireTriggered)
	})
}

func TestInputLength(t *testing.T) {
	t.Run("should trip above the limit", func(t *testing.T) {
		l := NewInputLength(5)
		result, err := l.Guardrail().Check(context.Background(), nil, nil, strings.Repeat("travel plan ", 20))
		require.NoError(t, err)
		assert.True(t, result.TripwireTriggered)
		assert.Greater(t, result.Info.(*LengthVerdict).Tokens, 5)
	})

	t.Run("should pass short input", func(t *testing.T) {
		l := NewInputLength(100)
		result, err := l.Guardrail().Check(context.Background(), nil, nil, "Paris in May")
		require.NoError(t, err)
		assert.False(t, result.TripwireTriggered)
	})

	t.Run("should never trip when disabled", func(t *testing.T) {
		l := NewInputLength(0)
		assert.False(t, l.Enabled())
		result, err := l.Guardrail().Check(context.Background(), nil, nil, strings.Repeat("word ", 5000))
		require.NoError(t, err)
		assert.False(t, result.TripwireTriggered)
	})
}
