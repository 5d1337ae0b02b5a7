package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormTokenRoundTrip(t *testing.T) {
	tokens := NewFormTokens("secret", 10)

	tok, err := tokens.Issue(7)
	require.NoError(t, err)
	assert.NoError(t, tokens.Verify(tok, 7))
}

func TestFormTokenRejections(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tokens := NewFormTokens("secret", 10)
	tokens.now = func() time.Time { return start }

	tok, err := tokens.Issue(7)
	require.NoError(t, err)

	other := NewFormTokens("another-secret", 10)
	other.now = tokens.now

	items := []struct {
		name   string
		verify func() error
	}{
		{"empty", func() error { return tokens.Verify("", 7) }},
		{"garbage", func() error { return tokens.Verify("not-a-token", 7) }},
		{"other user", func() error { return tokens.Verify(tok, 8) }},
		{"other secret", func() error { return other.Verify(tok, 7) }},
		{"expired", func() error {
			tokens.now = func() time.Time { return start.Add(11 * time.Minute) }
			defer func() { tokens.now = func() time.Time { return start } }()
			return tokens.Verify(tok, 7)
		}},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			assert.ErrorIs(t, item.verify(), ErrInvalidFormToken)
		})
	}
}
