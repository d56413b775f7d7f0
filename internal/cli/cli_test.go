package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ysyunhei/internal/cli"
	"github.com/rshade/ysyunhei/internal/config"
)

// setupCLITest isolates the config directory and resets global state.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvRedisAddr, "")
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String() + errOut.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestConfigInit(t *testing.T) {
	home := setupCLITest(t)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized at")

	configPath := filepath.Join(home, config.FileName)
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	gitignore, err := os.ReadFile(filepath.Join(home, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, config.GitignoreContent(), string(gitignore))

	loaded, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSleepStartHour, loaded.SleepStartHour)
	assert.Equal(t, config.DefaultSleepEndHour, loaded.SleepEndHour)
}

func TestConfigInit_ExistingRequiresForce(t *testing.T) {
	home := setupCLITest(t)
	path := writeConfig(t, home, "api_key: keep-me\n")

	_, err := execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "api_key: keep-me\n", string(data))

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.APIKey)
}

func TestConfigInit_ExistingGitignorePreserved(t *testing.T) {
	home := setupCLITest(t)
	custom := "# mine\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".gitignore"), []byte(custom), 0o600))

	_, err := execute(t, "config", "init")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(home, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestConfigInit_BrokenConfigStillRuns(t *testing.T) {
	home := setupCLITest(t)
	writeConfig(t, home, "api_key: [unterminated\n")

	out, err := execute(t, "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "using defaults")
}

func TestConfigValidate(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		setupCLITest(t)

		_, err := execute(t, "config", "validate")
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	})

	t.Run("api key from environment", func(t *testing.T) {
		setupCLITest(t)
		t.Setenv(config.EnvAPIKey, "from-env")

		out, err := execute(t, "config", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
		assert.Contains(t, out, "admin_qqs is empty")
	})

	t.Run("verbose hides secrets", func(t *testing.T) {
		home := setupCLITest(t)
		writeConfig(t, home, `api_key: TOPSECRET
admin_qqs:
  "20002": bob
  "10001": alice
onebot:
  ws_url: ws://127.0.0.1:6700
  access_token: TOKEN42
  timeout_seconds: 8
`)

		out, err := execute(t, "config", "validate", "--verbose")
		require.NoError(t, err)
		assert.Contains(t, out, "Administrators: 2")
		assert.Less(t, bytes.Index([]byte(out), []byte("10001 (alice)")),
			bytes.Index([]byte(out), []byte("20002 (bob)")))
		assert.NotContains(t, out, "TOPSECRET")
		assert.NotContains(t, out, "TOKEN42")
	})

	t.Run("invalid hours", func(t *testing.T) {
		home := setupCLITest(t)
		writeConfig(t, home, "api_key: k\nsleep_start_hour: 24\n")

		_, err := execute(t, "config", "validate")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})

	t.Run("broken yaml fails", func(t *testing.T) {
		home := setupCLITest(t)
		writeConfig(t, home, "api_key: [unterminated\n")

		_, err := execute(t, "config", "validate")
		require.Error(t, err)
	})
}

type blacklistServer struct {
	mu      sync.Mutex
	account string
	apiKey  string
	payload string
}

func (b *blacklistServer) start(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.account = r.URL.Query().Get("account")
		b.apiKey = r.URL.Query().Get("api_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b.payload))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestLookup(t *testing.T) {
	t.Run("listed account", func(t *testing.T) {
		home := setupCLITest(t)
		bl := &blacklistServer{payload: `{"code":1,"msg":"ok","data":{"account_name":10001,"platform":"QQ","level":"严重","describe":"spam","registration":"alice","add_time":"2024-01-02","expiration":"永久"}}`}
		url := bl.start(t)
		writeConfig(t, home, "api_key: SECRET\napi_base_url: "+url+"\n")

		out, err := execute(t, "lookup", "10001", "--plain")
		require.NoError(t, err)
		assert.Contains(t, out, "QQ号：10001")
		assert.Contains(t, out, "用户名：10001")
		assert.Contains(t, out, "违规原因：spam")
		assert.Contains(t, out, "严重等级：严重")
		assert.Contains(t, out, "查询云黑请见："+url)

		bl.mu.Lock()
		defer bl.mu.Unlock()
		assert.Equal(t, "10001", bl.account)
		assert.Equal(t, "SECRET", bl.apiKey)
	})

	t.Run("not listed", func(t *testing.T) {
		home := setupCLITest(t)
		bl := &blacklistServer{payload: `{"code":1,"msg":"ok","data":[]}`}
		writeConfig(t, home, "api_key: SECRET\napi_base_url: "+bl.start(t)+"\n")

		out, err := execute(t, "lookup", "10001")
		require.NoError(t, err)
		assert.Contains(t, out, "该用户不在黑名单中")
	})

	t.Run("remote refusal", func(t *testing.T) {
		home := setupCLITest(t)
		bl := &blacklistServer{payload: `{"code":0,"msg":"bad key"}`}
		writeConfig(t, home, "api_key: SECRET\napi_base_url: "+bl.start(t)+"\n")

		out, err := execute(t, "lookup", "10001")
		require.Error(t, err)
		assert.Contains(t, out, "API返回：bad key")
	})

	t.Run("requires api key", func(t *testing.T) {
		setupCLITest(t)

		_, err := execute(t, "lookup", "10001")
		assert.ErrorIs(t, err, config.ErrMissingAPIKey)
	})

	t.Run("requires account", func(t *testing.T) {
		setupCLITest(t)

		_, err := execute(t, "lookup")
		assert.Error(t, err)
	})
}

func TestAbout(t *testing.T) {
	t.Run("site up", func(t *testing.T) {
		home := setupCLITest(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)
		writeConfig(t, home, "api_base_url: "+srv.URL+"\n")

		out, err := execute(t, "about", "--plain")
		require.NoError(t, err)
		assert.Contains(t, out, "Ysy cloud blacklist plugin for OICQ")
		assert.Contains(t, out, "云黑服务：✅ 正常 (HTTP 200)")
	})

	t.Run("site down", func(t *testing.T) {
		home := setupCLITest(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		t.Cleanup(srv.Close)
		writeConfig(t, home, "api_base_url: "+srv.URL+"\n")

		out, err := execute(t, "about", "--plain")
		require.NoError(t, err)
		assert.Contains(t, out, "云黑服务：❌ 异常 (HTTP 502)")
	})
}

func TestServe_RequiresAPIKey(t *testing.T) {
	setupCLITest(t)

	_, err := execute(t, "serve")
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}
