package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		payload  string
		expected Status
		wantErr  bool
	}{
		{
			name:    "capitalized data key",
			payload: `{"Data": {"clients": 5, "sv_maxclients": 20, "hostname": "Foo"}}`,
			expected: Status{
				Hostname:       "Foo",
				CurrentPlayers: 5,
				MaxPlayers:     20,
				CapturedAt:     at,
			},
		},
		{
			name:    "lowercase data key",
			payload: `{"data": {"clients": 5, "sv_maxclients": 20, "hostname": "Foo"}}`,
			expected: Status{
				Hostname:       "Foo",
				CurrentPlayers: 5,
				MaxPlayers:     20,
				CapturedAt:     at,
			},
		},
		{
			name:    "missing hostname takes default",
			payload: `{"Data": {"clients": 3, "sv_maxclients": 48}}`,
			expected: Status{
				Hostname:       "Unknown Server",
				CurrentPlayers: 3,
				MaxPlayers:     48,
				CapturedAt:     at,
			},
		},
		{
			name:    "missing counts take defaults",
			payload: `{"Data": {"hostname": "Bar"}}`,
			expected: Status{
				Hostname:       "Bar",
				CurrentPlayers: 0,
				MaxPlayers:     32,
				CapturedAt:     at,
			},
		},
		{
			name:    "empty data object takes all defaults",
			payload: `{"Data": {}}`,
			expected: Status{
				Hostname:       "Unknown Server",
				CurrentPlayers: 0,
				MaxPlayers:     32,
				CapturedAt:     at,
			},
		},
		{
			name:    "empty hostname takes default",
			payload: `{"Data": {"clients": 2, "sv_maxclients": 20, "hostname": ""}}`,
			expected: Status{
				Hostname:       "Unknown Server",
				CurrentPlayers: 2,
				MaxPlayers:     20,
				CapturedAt:     at,
			},
		},
		{
			name:    "zero capacity takes default",
			payload: `{"Data": {"clients": 0, "sv_maxclients": 0, "hostname": ""}}`,
			expected: Status{
				Hostname:       "Unknown Server",
				CurrentPlayers: 0,
				MaxPlayers:     32,
				CapturedAt:     at,
			},
		},
		{
			name:    "zero client count is kept",
			payload: `{"Data": {"clients": 0, "sv_maxclients": 20, "hostname": "Foo"}}`,
			expected: Status{
				Hostname:       "Foo",
				CurrentPlayers: 0,
				MaxPlayers:     20,
				CapturedAt:     at,
			},
		},
		{
			name:    "no data key is a failure",
			payload: `{"EndPoint": "g3jo4z"}`,
			wantErr: true,
		},
		{
			name:    "null data is a failure",
			payload: `{"Data": null}`,
			wantErr: true,
		},
		{
			name:    "malformed document is a failure",
			payload: `{"Data": {`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, err := parsePayload([]byte(tc.payload), at)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, status)
		})
	}
}

func TestExtractPayload(t *testing.T) {
	const doc = `{"Data": {"clients": 7, "sv_maxclients": 32, "hostname": "Foo"}}`

	t.Run("pre block", func(t *testing.T) {
		html := `<html><head></head><body><pre style="word-wrap: break-word;">` + doc + `</pre></body></html>`

		raw, err := extractPayload(html, "ignored")
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(raw))
	})

	t.Run("pre block without JSON falls through to body", func(t *testing.T) {
		html := `<html><body><pre>not json</pre></body></html>`

		raw, err := extractPayload(html, doc)
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(raw))
	})

	t.Run("bare body text", func(t *testing.T) {
		raw, err := extractPayload("<html><body></body></html>", "  "+doc+"\n")
		require.NoError(t, err)
		assert.JSONEq(t, doc, string(raw))
	})

	t.Run("nothing extractable", func(t *testing.T) {
		_, err := extractPayload("<html><body><h1>503</h1></body></html>", "Service Unavailable")
		assert.ErrorIs(t, err, ErrNoData)
	})
}

func TestIsChallengeTitle(t *testing.T) {
	assert.True(t, isChallengeTitle("Just a moment..."))
	assert.True(t, isChallengeTitle("Attention Required! | Cloudflare"))
	assert.False(t, isChallengeTitle(""))
	assert.False(t, isChallengeTitle("servers-frontend.fivem.net"))
}
