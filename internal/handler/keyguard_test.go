package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/starscout/starscout/internal/ai"
	"github.com/starscout/starscout/internal/middleware"
)

type guardProvider struct {
	validateErr error
	boundKey    string
}

func (p *guardProvider) Name() string { return "guard-test" }
func (p *guardProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}
func (p *guardProvider) ValidateKey(ctx context.Context) error { return p.validateErr }
func (p *guardProvider) WithAPIKey(key string) ai.Provider {
	clone := *p
	clone.boundKey = key
	return &clone
}

func guardContext(t *testing.T, apiKey string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	if apiKey != "" {
		req.Header.Set("Api-Key", apiKey)
	}
	c.Request = req
	c.Set(middleware.ContextTokenKey, "token")
	return c, rec
}

func TestKeyGuardAllowsSmallAccountsWithoutKey(t *testing.T) {
	counter := func(ctx context.Context, token string) (int, error) { return 100, nil }
	guard := NewKeyGuard(&guardProvider{}, counter, 5000)

	c, _ := guardContext(t, "")
	key, ok := guard.Check(c)
	require.True(t, ok)
	require.Empty(t, key)
}

func TestKeyGuardRequiresKeyAboveThreshold(t *testing.T) {
	counter := func(ctx context.Context, token string) (int, error) { return 6000, nil }
	guard := NewKeyGuard(&guardProvider{}, counter, 5000)

	c, rec := guardContext(t, "")
	_, ok := guard.Check(c)
	require.False(t, ok)
	require.NotZero(t, rec.Body.Len())
}

func TestKeyGuardValidatesSuppliedKey(t *testing.T) {
	counter := func(ctx context.Context, token string) (int, error) { return 6000, nil }

	guard := NewKeyGuard(&guardProvider{}, counter, 5000)
	c, _ := guardContext(t, "user-key")
	key, ok := guard.Check(c)
	require.True(t, ok)
	require.Equal(t, "user-key", key)

	bad := NewKeyGuard(&guardProvider{validateErr: errors.New("denied")}, counter, 5000)
	c, rec := guardContext(t, "user-key")
	_, ok = bad.Check(c)
	require.False(t, ok)
	require.NotZero(t, rec.Body.Len())
}

func TestKeyGuardToleratesCounterFailure(t *testing.T) {
	counter := func(ctx context.Context, token string) (int, error) { return 0, errors.New("unreachable") }
	guard := NewKeyGuard(&guardProvider{}, counter, 5000)

	c, _ := guardContext(t, "")
	_, ok := guard.Check(c)
	require.True(t, ok)
}
