package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/clickstream/internal/cache"
	"github.com/axellelanca/clickstream/internal/config"
	"github.com/axellelanca/clickstream/internal/database"
	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/geo"
	"github.com/axellelanca/clickstream/internal/models"
	"github.com/axellelanca/clickstream/internal/quota"
	"github.com/axellelanca/clickstream/internal/queue"
	"github.com/axellelanca/clickstream/internal/repository"
	"github.com/axellelanca/clickstream/internal/services"
	"github.com/axellelanca/clickstream/internal/workers"
)

var testSecret = []byte("test-secret")

type fixedQuota struct{ err error }

func (q fixedQuota) Check(context.Context, string) error { return q.err }

type testServer struct {
	router     *gin.Engine
	dispatcher *workers.ClickDispatcher
	consumer   *workers.ClickConsumer
}

func newTestServer(t *testing.T, checker quota.Checker, limiter gin.HandlerFunc) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = filepath.Join(t.TempDir(), "test.db")
	cfg.Database.MaxOpenConns = 1
	db, err := database.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)

	clickQueue := queue.NewMemory(50 * time.Millisecond)
	dispatcher := workers.NewClickDispatcher(clickQueue, 16, time.Second)
	dispatcher.Start(1)
	t.Cleanup(dispatcher.Close)

	locator := geo.NewLocator(geo.Unavailable{}, cache.NewGeoCache(client, 0, time.Second))
	consumer := workers.NewClickConsumer(clickQueue, locator, clickRepo, workers.ConsumerConfig{BatchSize: 10})

	allocator := services.NewShortCodeAllocator(cache.NewCodeSet(client, time.Second), linkRepo)
	linkService := services.NewLinkService(linkRepo, allocator, cache.NewURLCache(client, 0, time.Second), checker, dispatcher)
	analyticsService := services.NewAnalyticsService(linkRepo, clickRepo)

	router := gin.New()
	SetupRoutes(router, linkService, analyticsService, RouteConfig{JWTSecret: testSecret, CreateLimiter: limiter})

	return &testServer{router: router, dispatcher: dispatcher, consumer: consumer}
}

func token(t *testing.T, owner string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   owner,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestShortenRedirectAnalytics(t *testing.T) {
	s := newTestServer(t, quota.Unlimited{}, nil)
	u1 := token(t, "u1")

	w := s.do(http.MethodPost, "/api/v1/links", `{"url":"https://a.example/x"}`, u1)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Regexp(t, `^[a-zA-Z0-9]{6}$`, created.ShortCode)
	assert.Equal(t, "https://a.example/x", created.LongURL)
	assert.Equal(t, "http://example.com/"+created.ShortCode, created.ShortURL)

	w = s.do(http.MethodGet, "/"+created.ShortCode, "", "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://a.example/x", w.Header().Get("Location"))

	// Flush the publish buffer and ingest.
	s.dispatcher.Close()
	n, err := s.consumer.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	w = s.do(http.MethodGet, "/api/v1/links/"+created.ShortCode+"/analytics", "", u1)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var analytics models.Analytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analytics))
	assert.EqualValues(t, 1, analytics.TotalClicks)
	require.Len(t, analytics.DailyClicks, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), analytics.DailyClicks[0].Date)
	require.Len(t, analytics.GeoData, 1)
	assert.Nil(t, analytics.GeoData[0].Country)
	assert.EqualValues(t, 1, analytics.GeoData[0].Count)

	// Someone else's link looks like an unknown one.
	w = s.do(http.MethodGet, "/api/v1/links/"+created.ShortCode+"/analytics", "", token(t, "u2"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateLink_Errors(t *testing.T) {
	tests := []struct {
		name     string
		checker  quota.Checker
		body     string
		bearer   bool
		wantCode int
	}{
		{name: "no token", checker: quota.Unlimited{}, body: `{"url":"https://a.example"}`, wantCode: http.StatusUnauthorized},
		{name: "missing url", checker: quota.Unlimited{}, body: `{}`, bearer: true, wantCode: http.StatusBadRequest},
		{name: "malformed json", checker: quota.Unlimited{}, body: `{"url":`, bearer: true, wantCode: http.StatusBadRequest},
		{name: "invalid url", checker: quota.Unlimited{}, body: `{"url":"ftp://a.example"}`, bearer: true, wantCode: http.StatusBadRequest},
		{name: "quota exceeded", checker: fixedQuota{err: customerrors.ErrQuotaExceeded}, body: `{"url":"https://a.example"}`, bearer: true, wantCode: http.StatusForbidden},
		{name: "unknown user", checker: fixedQuota{err: customerrors.ErrUserNotFound}, body: `{"url":"https://a.example"}`, bearer: true, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.checker, nil)
			bearer := ""
			if tt.bearer {
				bearer = token(t, "u1")
			}
			w := s.do(http.MethodPost, "/api/v1/links", tt.body, bearer)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestRedirect_UnknownCode(t *testing.T) {
	s := newTestServer(t, quota.Unlimited{}, nil)

	w := s.do(http.MethodGet, "/zzzzzz", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, quota.Unlimited{}, nil)

	w := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCreateLimiter(t *testing.T) {
	limiter, err := NewCreateLimiter(nil, "2-M")
	require.NoError(t, err)
	s := newTestServer(t, quota.Unlimited{}, limiter)
	u1 := token(t, "u1")

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/v1/links", `{"url":"https://a.example"}`, u1)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := s.do(http.MethodPost, "/api/v1/links", `{"url":"https://a.example"}`, u1)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Budgets are per owner.
	w = s.do(http.MethodPost, "/api/v1/links", `{"url":"https://a.example"}`, token(t, "u2"))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestNewCreateLimiter_InvalidRate(t *testing.T) {
	_, err := NewCreateLimiter(nil, "often")
	assert.Error(t, err)
}
