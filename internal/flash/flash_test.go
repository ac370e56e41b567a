package flash

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	msgs, err := store.Pop(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, store.Push(ctx, "s1", Message{Category: CategoryOK, Text: "one"}))
	require.NoError(t, store.Push(ctx, "s1", Message{Category: CategoryError, Text: "two"}))
	require.NoError(t, store.Push(ctx, "s2", Message{Category: CategoryOK, Text: "other"}))

	msgs, err = store.Pop(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []Message{{Category: CategoryOK, Text: "one"}, {Category: CategoryError, Text: "two"}}, msgs)

	msgs, err = store.Pop(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "messages are delivered once")

	msgs, err = store.Pop(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemoryStore(time.Minute))
}

func TestMemoryStore_Expires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Push(context.Background(), "s", Message{Text: "stale"}))
	now = now.Add(2 * time.Minute)

	msgs, err := store.Pop(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TICKETS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TICKETS_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	runStoreSuite(t, NewRedisStore(client, time.Minute))
}

func TestManager_SurvivesRedirect(t *testing.T) {
	m := NewManager(NewMemoryStore(time.Minute), time.Minute, zap.NewNop())
	app := fiber.New()
	app.Post("/act", func(c *fiber.Ctx) error {
		m.OK(c, "saved")
		return c.Redirect("/show")
	})
	app.Get("/show", func(c *fiber.Ctx) error {
		var parts []string
		for _, msg := range m.Pop(c) {
			parts = append(parts, msg.Category+":"+msg.Text)
		}
		return c.SendString(strings.Join(parts, ","))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/act", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == CookieName {
			session = ck
		}
	}
	require.NotNil(t, session)

	show := func() string {
		req := httptest.NewRequest(http.MethodGet, "/show", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: session.Value})
		resp, err := app.Test(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}
	assert.Equal(t, "ok:saved", show())
	assert.Equal(t, "", show())
}
