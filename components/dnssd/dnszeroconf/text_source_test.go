package dnszeroconf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextSource(t *testing.T) {
	tests := []struct {
		name     string
		records  []string
		wantKeys []string
	}{
		{
			name:     "key value pairs",
			records:  []string{"path=/api/", "version=v1"},
			wantKeys: []string{"path", "version"},
		},
		{
			name:     "bare key",
			records:  []string{"paired"},
			wantKeys: []string{"paired"},
		},
		{
			name:     "empty value",
			records:  []string{"path="},
			wantKeys: []string{"path"},
		},
		{
			name:     "empty record skipped",
			records:  []string{"", "path=/"},
			wantKeys: []string{"path"},
		},
		{
			name:     "duplicate key ignored",
			records:  []string{"path=/a", "path=/b"},
			wantKeys: []string{"path"},
		},
		{
			name:     "no records",
			records:  nil,
			wantKeys: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := newTextSource(test.records)
			require.Equal(t, test.wantKeys, src.Keys())
		})
	}
}

func TestTextSourceData(t *testing.T) {
	src := newTextSource([]string{"path=/api/", "empty=", "paired"})

	data, ok := src.Data("path")
	require.True(t, ok)
	require.Equal(t, []byte("/api/"), data)

	// An empty value is present, distinct from an absent one.
	data, ok = src.Data("empty")
	require.True(t, ok)
	require.Empty(t, data)

	data, ok = src.Data("paired")
	require.False(t, ok)
	require.Nil(t, data)

	data, ok = src.Data("missing")
	require.False(t, ok)
	require.Nil(t, data)
}

func TestTextSourceFirstOccurrenceWins(t *testing.T) {
	src := newTextSource([]string{"path=/a", "path=/b"})

	data, ok := src.Data("path")
	require.True(t, ok)
	require.Equal(t, []byte("/a"), data)
}
