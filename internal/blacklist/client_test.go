package blacklist_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ysyunhei/internal/blacklist"
)

type capture struct {
	mu      sync.Mutex
	method  string
	path    string
	query   url.Values
	calls   int
	status  int
	payload string
}

func (c *capture) handler(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = r.Method
	c.path = r.URL.Path
	c.query = r.URL.Query()
	c.calls++
	status := c.status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(c.payload))
}

func newClient(t *testing.T, c *capture) *blacklist.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(c.handler))
	t.Cleanup(srv.Close)
	return blacklist.New(blacklist.Options{BaseURL: srv.URL, APIKey: "SECRET123"})
}

func TestClient_Query(t *testing.T) {
	t.Run("object data", func(t *testing.T) {
		c := &capture{payload: `{"code":1,"msg":"ok","data":{"account_name":10001,"platform":"QQ","level":"严重","describe":"spam","registration":"alice","add_time":"2024-01-02","expiration":"永久"}}`}
		client := newClient(t, c)

		res, err := client.Query(context.Background(), "10001")
		require.NoError(t, err)
		assert.True(t, res.Success())

		rec, ok := res.Record()
		require.True(t, ok)
		assert.Equal(t, "10001", string(rec.Account))
		assert.Equal(t, "spam", string(rec.Description))
		lvl, ok := rec.Level()
		require.True(t, ok)
		assert.Equal(t, blacklist.LevelSevere, lvl)

		assert.Equal(t, http.MethodGet, c.method)
		assert.Equal(t, "/get_platform_users", c.path)
		assert.Equal(t, "SECRET123", c.query.Get("api_key"))
		assert.Equal(t, "1", c.query.Get("mode"))
		assert.Equal(t, "1", c.query.Get("search_type"))
		assert.Equal(t, "1", c.query.Get("account_type"))
		assert.Equal(t, "10001", c.query.Get("account"))
	})

	t.Run("array data keeps first", func(t *testing.T) {
		c := &capture{payload: `{"code":1,"data":[{"account_name":"1","level":"轻微"},{"account_name":"2","level":"严重"}]}`}
		res, err := newClient(t, c).Query(context.Background(), "1")
		require.NoError(t, err)
		require.Len(t, res.Records, 1)
		assert.Equal(t, "1", string(res.Records[0].Account))
	})

	for name, payload := range map[string]string{
		"empty array": `{"code":1,"data":[]}`,
		"null":        `{"code":1,"data":null}`,
		"empty text":  `{"code":1,"data":""}`,
		"missing":     `{"code":1}`,
		"false":       `{"code":1,"data":false}`,
	} {
		t.Run(name, func(t *testing.T) {
			res, err := newClient(t, &capture{payload: payload}).Query(context.Background(), "1")
			require.NoError(t, err)
			assert.True(t, res.Empty())
		})
	}

	t.Run("failure code", func(t *testing.T) {
		c := &capture{payload: `{"code":0,"msg":"key invalid","data":[]}`}
		res, err := newClient(t, c).Query(context.Background(), "1")
		require.NoError(t, err)
		assert.False(t, res.Success())
		assert.True(t, res.Empty())

		var apiErr *blacklist.APIError
		require.ErrorAs(t, res.Err(blacklist.EndpointQuery), &apiErr)
		assert.Equal(t, "key invalid", apiErr.Message)
	})

	t.Run("string code", func(t *testing.T) {
		res, err := newClient(t, &capture{payload: `{"code":"1","data":[]}`}).Query(context.Background(), "1")
		require.NoError(t, err)
		assert.True(t, res.Success())
	})

	t.Run("http status", func(t *testing.T) {
		_, err := newClient(t, &capture{status: http.StatusBadGateway, payload: "bad"}).Query(context.Background(), "1")
		require.ErrorIs(t, err, blacklist.ErrHTTPStatus)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := newClient(t, &capture{payload: "<html>"}).Query(context.Background(), "1")
		require.ErrorIs(t, err, blacklist.ErrMalformed)
	})

	t.Run("transport", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := blacklist.New(blacklist.Options{BaseURL: srv.URL, APIKey: "SECRET123"})
		_, err := client.Query(context.Background(), "1")
		require.ErrorIs(t, err, blacklist.ErrTransport)
	})

	t.Run("idempotent", func(t *testing.T) {
		c := &capture{payload: `{"code":1,"data":{"account_name":"7","level":"中等"}}`}
		client := newClient(t, c)
		a, err := client.Query(context.Background(), "7")
		require.NoError(t, err)
		b, err := client.Query(context.Background(), "7")
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, 2, c.calls)
	})
}

func TestClient_Add(t *testing.T) {
	tests := []struct {
		level      blacklist.Level
		expiration string
	}{
		{blacklist.LevelLight, "31536000"},
		{blacklist.LevelModerate, "0"},
		{blacklist.LevelSevere, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			c := &capture{payload: `{"code":1,"msg":"ok","data":null}`}
			res, err := newClient(t, c).Add(context.Background(), blacklist.AddRequest{
				Account:      "10001",
				Level:        tt.level,
				Registration: "管理 A",
				Description:  "刷屏 & 广告（2024-01-02）",
			})
			require.NoError(t, err)
			assert.True(t, res.Success())

			assert.Equal(t, http.MethodPost, c.method)
			assert.Equal(t, "/add_platform_users", c.path)
			assert.Equal(t, "1", c.query.Get("account_type"))
			assert.Equal(t, "10001", c.query.Get("name"))
			assert.Equal(t, "管理 A", c.query.Get("registration"))
			assert.Equal(t, "刷屏 & 广告（2024-01-02）", c.query.Get("desc"))
			assert.Equal(t, tt.expiration, c.query.Get("expiration"))
		})
	}
}

func TestLevel(t *testing.T) {
	for n, want := range map[int]blacklist.Level{1: blacklist.LevelLight, 2: blacklist.LevelModerate, 3: blacklist.LevelSevere} {
		got, ok := blacklist.ParseLevel(n)
		require.True(t, ok)
		assert.Equal(t, want, got)
		back, ok := blacklist.LevelFromLabel(got.Label())
		require.True(t, ok)
		assert.Equal(t, got, back)
	}

	for _, n := range []int{0, 4, -1} {
		_, ok := blacklist.ParseLevel(n)
		assert.False(t, ok)
	}

	_, ok := blacklist.LevelFromLabel("critical")
	assert.False(t, ok)
}
