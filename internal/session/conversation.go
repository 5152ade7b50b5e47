package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/kalambet/gemsearch/internal/remote"
)

// Querier answers a question with files as context.
type Querier interface {
	Query(ctx context.Context, question string, files []remote.FileRef) (string, error)
}

// Conversation drives a session: each successful question adds a user and a
// model turn and is persisted when a store is configured.
type Conversation struct {
	querier Querier
	store   Store

	mu   sync.Mutex
	sess *Session
}

// NewConversation binds sess to querier. store may be nil.
func NewConversation(querier Querier, store Store, sess *Session) *Conversation {
	if sess == nil {
		sess = New("")
	}
	return &Conversation{querier: querier, store: store, sess: sess}
}

// Session returns the underlying session.
func (c *Conversation) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Ask queries with the session's files. A failed query leaves the session
// untouched.
func (c *Conversation) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answer, err := c.querier.Query(ctx, question, c.sess.Refs())
	if err != nil {
		return "", err
	}

	c.sess.AddTurn(RoleUser, question)
	c.sess.AddTurn(RoleModel, answer)
	if c.store != nil {
		if err := c.store.SaveSession(c.sess); err != nil {
			return answer, fmt.Errorf("saving session: %w", err)
		}
	}
	return answer, nil
}
