package chat

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrChatExists  = errors.New("chat already exists")
	ErrUnknownChat = errors.New("unknown chat")
)

// pairKey identifies a chat by its participant pair, in the order the
// chat was registered with.
type pairKey struct {
	a, b uint64
}

type room struct {
	chat Chat
	log  []Message
}

// Service is the mutable chat store. It is owned and mutated exclusively
// by the single reactor thread, so it carries no locks.
type Service struct {
	contacts Contacts
	chats    map[pairKey]*room
	chatIDs  map[uint64]pairKey
}

// NewService creates a Service backed by the given contact directory
func NewService(contacts Contacts) *Service {
	return &Service{
		contacts: contacts,
		chats:    make(map[pairKey]*room),
		chatIDs:  make(map[uint64]pairKey),
	}
}

// AddChat creates a chat between the two participants. It fails if the
// pair already has a chat or if either participant's contact list does not
// include the other; the error names the missing direction.
func (s *Service) AddChat(c Chat) error {
	a, b := c.ParticipantIDs[0], c.ParticipantIDs[1]
	key := pairKey{a, b}

	if _, ok := s.chats[key]; ok {
		return ErrChatExists
	}
	if !s.contacts.Lists(a, b) {
		return fmt.Errorf("user %d does not have user %d in their contact list", a, b)
	}
	if !s.contacts.Lists(b, a) {
		return fmt.Errorf("user %d does not have user %d in their contact list", b, a)
	}

	s.chatIDs[c.ID] = key
	s.chats[key] = &room{chat: c}
	return nil
}

// SendMessage appends a message to an existing chat's log. A zero
// timestamp is filled in with the current time.
func (s *Service) SendMessage(chatID uint64, m Message) error {
	key, ok := s.chatIDs[chatID]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownChat, chatID)
	}
	if m.Timestamp == 0 {
		m.Timestamp = timestampMillis()
	}
	r := s.chats[key]
	r.log = append(r.log, m)
	return nil
}

// Messages returns a copy of a chat's log ordered by timestamp
// descending, most recent first.
func (s *Service) Messages(chatID uint64) ([]Message, error) {
	key, ok := s.chatIDs[chatID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownChat, chatID)
	}
	r := s.chats[key]

	out := make([]Message, len(r.log))
	copy(out, r.log)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

// UserChats lists the chats that include the given participant. The
// result is never nil so it encodes as a JSON array.
func (s *Service) UserChats(userID uint64) []Chat {
	chats := make([]Chat, 0)
	for key, r := range s.chats {
		if key.a == userID || key.b == userID {
			chats = append(chats, r.chat)
		}
	}
	return chats
}

func timestampMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}
