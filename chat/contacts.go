package chat

import (
	"encoding/json"
	"fmt"
	"os"
)

// Contacts is the read-only directory of who may chat with whom, keyed by
// user id. It is constructed once at startup, handed to the Service, and
// never mutated afterwards.
type Contacts map[uint64][]uint64

// LoadContacts reads the directory from a JSON object mapping user id to
// a list of contact user ids.
func LoadContacts(path string) (Contacts, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open contacts: %w", err)
	}
	defer f.Close()

	var c Contacts
	if err := json.NewDecoder(f).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode contacts %s: %w", path, err)
	}
	return c, nil
}

// Lists reports whether user has other in their contact list
func (c Contacts) Lists(user, other uint64) bool {
	for _, id := range c[user] {
		if id == other {
			return true
		}
	}
	return false
}
