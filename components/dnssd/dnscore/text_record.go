package dnscore

import "github.com/open-control-systems/dnssd-bridge/components/status"

// TextEntrySource enumerates the TXT record attributes of a resolve delivery.
//
// The discovery engine owns the underlying dictionary, the bridge only reads
// it through this accessor pair during decoding.
type TextEntrySource interface {
	// Keys returns all attribute keys, in delivery order.
	Keys() []string

	// Data returns the value for the key. The second result is false if the
	// key is present without any value, which is distinct from an empty one.
	Data(key string) ([]byte, bool)
}

// EncodeTextEntries converts TXT entries into the parallel key and value
// sequences an outbound publish call expects.
//
// The returned sequences are owned by the caller for the duration of the
// outbound call only. Absent values are encoded as nil, empty values as an
// empty buffer.
func EncodeTextEntries(entries []TextEntry) ([]string, [][]byte, error) {
	if !FitsCount(len(entries)) {
		return nil, nil, status.StatusInvalidArgument
	}

	keys := make([]string, 0, len(entries))
	values := make([][]byte, 0, len(entries))

	for _, entry := range entries {
		if !FitsCount(len(entry.Data)) {
			return nil, nil, status.StatusInvalidArgument
		}

		keys = append(keys, entry.Key)

		if !entry.HasData {
			values = append(values, nil)
			continue
		}

		data := make([]byte, len(entry.Data))
		copy(data, entry.Data)
		values = append(values, data)
	}

	return keys, values, nil
}

// DecodeTextEntries reads all TXT attributes from the source into a freshly
// allocated TextEntryList. Every key string and value buffer is duplicated,
// nothing in the result aliases engine-owned memory.
//
// The list is valid only until Release is called; the bridge releases it
// right after the single resolve callback that consumes it returns.
func DecodeTextEntries(src TextEntrySource) (*TextEntryList, error) {
	list := &TextEntryList{}

	if src == nil {
		return list, nil
	}

	keys := src.Keys()
	if !FitsCount(len(keys)) {
		return nil, status.StatusInvalidArgument
	}

	list.entries = make([]TextEntry, 0, len(keys))

	for _, key := range keys {
		entry := TextEntry{Key: key}

		if data, ok := src.Data(key); ok {
			entry.Data = make([]byte, len(data))
			copy(entry.Data, data)
			entry.HasData = true
		}

		list.entries = append(list.entries, entry)
	}

	return list, nil
}

// TextEntryList owns the decoded TXT entries of a single resolve delivery.
//
// Ownership contract: the entries are valid only for the duration of the one
// synchronous callback invocation that follows decoding. Release invalidates
// the list and wipes every buffer it owns, so a consumer that retained a
// reference past the callback return observes cleared data instead of
// silently reading stale memory.
type TextEntryList struct {
	entries  []TextEntry
	released bool
}

// Entries returns the owned entries, or nil if the list was already released.
func (l *TextEntryList) Entries() []TextEntry {
	if l.released {
		return nil
	}

	return l.entries
}

// Len returns the number of owned entries.
func (l *TextEntryList) Len() int {
	if l.released {
		return 0
	}

	return len(l.entries)
}

// Release walks and invalidates all owned entries. It's safe to call more
// than once, subsequent calls are no-ops.
func (l *TextEntryList) Release() {
	if l.released {
		return
	}

	for i := range l.entries {
		for j := range l.entries[i].Data {
			l.entries[i].Data[j] = 0
		}

		l.entries[i] = TextEntry{}
	}

	l.entries = nil
	l.released = true
}
