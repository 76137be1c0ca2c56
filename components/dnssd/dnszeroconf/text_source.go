package dnszeroconf

import "strings"

// textSource adapts zeroconf TXT record strings to the accessor pair the
// bridge decodes TXT entries through.
//
// A record without "=" is a key present without any value, "k=" is a key with
// an empty value.
type textSource struct {
	keys []string
	data map[string][]byte
}

func newTextSource(records []string) *textSource {
	src := &textSource{
		data: make(map[string][]byte, len(records)),
	}

	for _, record := range records {
		if record == "" {
			continue
		}

		key, value, found := strings.Cut(record, "=")
		if _, ok := src.data[key]; ok {
			// Only the first occurrence of a key counts.
			continue
		}

		src.keys = append(src.keys, key)

		switch {
		case !found:
			// nil marks a key present without any value.
			src.data[key] = nil

		case value == "":
			src.data[key] = []byte{}

		default:
			src.data[key] = []byte(value)
		}
	}

	return src
}

// Keys returns all attribute keys, in delivery order.
func (s *textSource) Keys() []string {
	return s.keys
}

// Data returns the value for the key, false for a key without any value.
func (s *textSource) Data(key string) ([]byte, bool) {
	data, ok := s.data[key]
	if !ok || data == nil {
		return nil, false
	}

	return data, true
}
