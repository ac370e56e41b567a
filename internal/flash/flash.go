// Package flash carries one-shot status messages across a redirect.
package flash

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CookieName holds the flash session id.
const CookieName = "flash"

// Message categories used by the UI.
const (
	CategoryOK    = "ok"
	CategoryError = "error"
)

// Message is a single flash message.
type Message struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Store keeps pending messages per session until they are popped.
type Store interface {
	Push(ctx context.Context, session string, msg Message) error
	// Pop returns and removes all pending messages for session.
	Pop(ctx context.Context, session string) ([]Message, error)
}

type memoryEntry struct {
	messages []Message
	expires  time.Time
}

// MemoryStore is an in-process Store. Entries expire after ttl.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*memoryEntry
}

// NewMemoryStore creates a MemoryStore.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) Push(_ context.Context, session string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	entry, ok := s.entries[session]
	if !ok {
		entry = &memoryEntry{}
		s.entries[session] = entry
	}
	entry.messages = append(entry.messages, msg)
	entry.expires = now.Add(s.ttl)
	return nil
}

func (s *MemoryStore) Pop(_ context.Context, session string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	entry, ok := s.entries[session]
	if !ok {
		return nil, nil
	}
	delete(s.entries, session)
	return entry.messages, nil
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for key, entry := range s.entries {
		if now.After(entry.expires) {
			delete(s.entries, key)
		}
	}
}

// RedisStore keeps messages in a Redis list per session.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, prefix: "tickets:flash:"}
}

func (s *RedisStore) Push(ctx context.Context, session string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	key := s.prefix + session
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	return nil
}

func (s *RedisStore) Pop(ctx context.Context, session string) ([]Message, error) {
	key := s.prefix + session
	var values *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		values = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pop flash: %w", err)
	}
	raw := values.Val()
	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Manager binds a Store to fiber requests through the flash cookie.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, logger: logger}
}

// Add queues a message for the next page rendered for this client. Store
// failures are logged; a lost flash message never fails the request.
func (m *Manager) Add(c *fiber.Ctx, category, text string) {
	session := c.Cookies(CookieName)
	if _, err := uuid.Parse(session); err != nil {
		session = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     CookieName,
			Value:    session,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
			Expires:  time.Now().Add(m.ttl),
		})
	}
	if err := m.store.Push(c.UserContext(), session, Message{Category: category, Text: text}); err != nil {
		m.logger.Warn("flash push failed", zap.Error(err))
	}
}

// OK queues a success message.
func (m *Manager) OK(c *fiber.Ctx, text string) { m.Add(c, CategoryOK, text) }

// Error queues an error message.
func (m *Manager) Error(c *fiber.Ctx, text string) { m.Add(c, CategoryError, text) }

// Pop returns pending messages for this client.
func (m *Manager) Pop(c *fiber.Ctx) []Message {
	session := c.Cookies(CookieName)
	if session == "" {
		return nil
	}
	messages, err := m.store.Pop(c.UserContext(), session)
	if err != nil {
		m.logger.Warn("flash pop failed", zap.Error(err))
		return nil
	}
	return messages
}
