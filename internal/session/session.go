// Package session holds the state of one conversation: the files in context
// and the turns exchanged so far.
package session

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/gemsearch/internal/remote"
)

// ErrNotFound is returned by a Store when no session has the requested ID.
var ErrNotFound = errors.New("session not found")

const titleLimit = 60

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleModel }

// Turn is one message of a conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a conversation together with the files it can reference.
type Session struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Files     []remote.FileRef `json:"files"`
	Turns     []Turn           `json:"turns"`
}

// New returns an empty session. A random ID is assigned when id is empty.
func New(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Files:     []remote.FileRef{},
		Turns:     []Turn{},
	}
}

// AddFile appends ref unless a file with the same URI is already present.
// It reports whether the list changed.
func (s *Session) AddFile(ref remote.FileRef) bool {
	for _, f := range s.Files {
		if f.URI == ref.URI {
			return false
		}
	}
	s.Files = append(s.Files, ref)
	s.touch()
	return true
}

// ClearFiles empties the file list. Turns are kept.
func (s *Session) ClearFiles() {
	s.Files = []remote.FileRef{}
	s.touch()
}

// AddTurn appends a turn. The first user turn also becomes the title.
func (s *Session) AddTurn(role Role, text string) {
	s.Turns = append(s.Turns, Turn{Role: role, Text: text, CreatedAt: time.Now().UTC()})
	if s.Title == "" && role == RoleUser {
		s.Title = makeTitle(text)
	}
	s.touch()
}

// Refs returns a copy of the file list.
func (s *Session) Refs() []remote.FileRef {
	out := make([]remote.FileRef, len(s.Files))
	copy(out, s.Files)
	return out
}

func (s *Session) touch() { s.UpdatedAt = time.Now().UTC() }

func makeTitle(text string) string {
	t := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(t) <= titleLimit {
		return t
	}
	r := []rune(t)
	return string(r[:titleLimit-1]) + "…"
}

// Summary is a lightweight listing entry.
type Summary struct {
	ID        string
	Title     string
	UpdatedAt time.Time
	Files     int
	Turns     int
}

// Store persists sessions.
type Store interface {
	LoadSession(id string) (*Session, error)
	SaveSession(s *Session) error
	ListSessions(limit int) ([]Summary, error)
	DeleteSession(id string) error
}

// LoadOrNew loads the session id from store, or returns a fresh session with
// that ID when none is stored yet.
func LoadOrNew(store Store, id string) (*Session, error) {
	if id == "" {
		return New(""), nil
	}
	s, err := store.LoadSession(id)
	if errors.Is(err, ErrNotFound) {
		return New(id), nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
