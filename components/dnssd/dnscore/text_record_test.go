package dnscore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testTextSource struct {
	keys []string
	data map[string][]byte
}

func (s *testTextSource) Keys() []string {
	return s.keys
}

func (s *testTextSource) Data(key string) ([]byte, bool) {
	data, ok := s.data[key]

	return data, ok
}

func TestEncodeTextEntries(t *testing.T) {
	entries := []TextEntry{
		{Key: "D", Data: []byte{0x00, 0x01}, HasData: true},
		{Key: "CM", Data: []byte{}, HasData: true},
		{Key: "SII"},
	}

	keys, values, err := EncodeTextEntries(entries)
	require.Nil(t, err)
	require.Equal(t, []string{"D", "CM", "SII"}, keys)
	require.Len(t, values, 3)

	require.Equal(t, []byte{0x00, 0x01}, values[0])
	require.NotNil(t, values[1])
	require.Empty(t, values[1])
	require.Nil(t, values[2])
}

func TestEncodeTextEntriesOwnedValues(t *testing.T) {
	data := []byte{0xaa, 0xbb}
	entries := []TextEntry{{Key: "D", Data: data, HasData: true}}

	_, values, err := EncodeTextEntries(entries)
	require.Nil(t, err)

	data[0] = 0x00
	require.Equal(t, []byte{0xaa, 0xbb}, values[0])
}

func TestEncodeTextEntriesEmpty(t *testing.T) {
	keys, values, err := EncodeTextEntries(nil)
	require.Nil(t, err)
	require.Empty(t, keys)
	require.Empty(t, values)
}

func TestDecodeTextEntries(t *testing.T) {
	src := &testTextSource{
		keys: []string{"D", "CM", "SII"},
		data: map[string][]byte{
			"D":  {0x00, 0x01},
			"CM": {},
		},
	}

	list, err := DecodeTextEntries(src)
	require.Nil(t, err)
	require.Equal(t, 3, list.Len())

	entries := list.Entries()

	require.Equal(t, "D", entries[0].Key)
	require.True(t, entries[0].HasData)
	require.Equal(t, []byte{0x00, 0x01}, entries[0].Data)

	require.Equal(t, "CM", entries[1].Key)
	require.True(t, entries[1].HasData)
	require.Empty(t, entries[1].Data)

	require.Equal(t, "SII", entries[2].Key)
	require.False(t, entries[2].HasData)
	require.Nil(t, entries[2].Data)
}

func TestDecodeTextEntriesNilSource(t *testing.T) {
	list, err := DecodeTextEntries(nil)
	require.Nil(t, err)
	require.Equal(t, 0, list.Len())
	require.Empty(t, list.Entries())
}

func TestDecodeTextEntriesOwnedBuffers(t *testing.T) {
	data := []byte{0xaa, 0xbb}
	src := &testTextSource{
		keys: []string{"D"},
		data: map[string][]byte{"D": data},
	}

	list, err := DecodeTextEntries(src)
	require.Nil(t, err)

	data[0] = 0x00
	require.Equal(t, []byte{0xaa, 0xbb}, list.Entries()[0].Data)
}

func TestTextEntryListRelease(t *testing.T) {
	src := &testTextSource{
		keys: []string{"D"},
		data: map[string][]byte{"D": {0x00, 0x01}},
	}

	list, err := DecodeTextEntries(src)
	require.Nil(t, err)

	retained := list.Entries()
	retainedData := retained[0].Data

	list.Release()

	require.Nil(t, list.Entries())
	require.Equal(t, 0, list.Len())

	// A consumer that retained a reference past the release point observes
	// cleared data, never stale content.
	require.Equal(t, TextEntry{}, retained[0])
	for _, b := range retainedData {
		require.Equal(t, byte(0), b)
	}

	// Repeated release is a no-op.
	list.Release()
}

func TestFitsCount(t *testing.T) {
	require.True(t, FitsCount(0))
	require.True(t, FitsCount(1))
	require.False(t, FitsCount(-1))
}
