package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/config"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/notify"
	"github.com/matheus3301/crmlive/internal/session"
	"github.com/matheus3301/crmlive/internal/status"
	"github.com/matheus3301/crmlive/internal/tui/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const operatorPhone = "+15559990000"

func newCRM(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/clients":
			_ = json.NewEncoder(w).Encode([]crm.Client{{ID: "7", FirstName: "Zed", PrimaryPhone: "+15550007"}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) *config.Session {
	cfg := config.DefaultSession()
	cfg.API.BaseURL = baseURL
	cfg.Operator = crm.Operator{ID: "op-1", Email: "op@example.com", PhoneNumber: operatorPhone}
	cfg.Feed.Driver = config.DriverMemory
	cfg.Log.Level = "debug"
	return cfg
}

func tempHome(t *testing.T, pattern string) string {
	t.Helper()
	// Use /tmp for short socket paths (macOS 104-char limit).
	dir, err := os.MkdirTemp("/tmp", pattern)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv(session.HomeEnv, dir)
	return dir
}

// TestDaemonLifecycle boots the full fx graph on the memory feed, checks
// that the global scope turns inbound messages into notifications, and
// queries the daemon over its socket.
func TestDaemonLifecycle(t *testing.T) {
	home := tempHome(t, "crm-test-*")
	socketPath := filepath.Join(home, "d.sock")
	crmSrv := newCRM(t)

	var (
		f       feed.Feed
		machine *status.Machine
		notes   *notify.Store
	)
	app := fx.New(
		fx.NopLogger,
		Module(Params{SessionName: "test", SocketPath: socketPath, Config: testConfig(crmSrv.URL)}),
		fx.Populate(&f, &machine, &notes),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))

	require.Eventually(t, func() bool { return machine.Current() == status.Ready }, 5*time.Second, 20*time.Millisecond)

	hub, ok := f.(*feed.Hub)
	require.True(t, ok, "memory driver should provide a hub")
	hub.Publish(feed.Event{Kind: feed.Insert, New: crm.Message{
		ID: "m1", ClientID: "7", ToNumber: operatorPhone, Content: "hello", Direction: crm.Inbound,
		CreatedAt: "2024-01-01T10:00:00Z",
	}})
	require.Eventually(t, func() bool { return notes.Len() == 1 }, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Zed", notes.List()[0].ClientName)

	c, err := client.New(socketPath)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	st, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test", st.Session)
	assert.Equal(t, string(status.Ready), st.Status)
	assert.Equal(t, "global:"+operatorPhone, st.Scope)
	assert.Equal(t, 1, st.Notifications)
	assert.Equal(t, 1, st.Clients)

	// A dropped feed degrades the daemon until it is reactivated.
	hub.Disconnect(errors.New("socket closed"))
	require.Eventually(t, func() bool { return machine.Current() == status.Degraded }, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, machine.Reason(), "socket closed")

	require.NoError(t, c.Reactivate(ctx))
	assert.Equal(t, status.Ready, machine.Current())

	require.NoError(t, app.Stop(ctx))
	assert.Equal(t, status.Stopping, machine.Current())
	_, statErr := os.Stat(socketPath)
	assert.True(t, os.IsNotExist(statErr), "socket should be removed on stop")
}

// TestMissingOperatorPhoneDegrades verifies the daemon still serves when
// the global scope cannot start.
func TestMissingOperatorPhoneDegrades(t *testing.T) {
	home := tempHome(t, "crm-nophone-*")
	cfg := testConfig(newCRM(t).URL)
	cfg.Operator.PhoneNumber = ""

	var machine *status.Machine
	app := fx.New(
		fx.NopLogger,
		Module(Params{SessionName: "test", SocketPath: filepath.Join(home, "d.sock"), Config: cfg}),
		fx.Populate(&machine),
	)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	defer func() { _ = app.Stop(ctx) }()

	require.Eventually(t, func() bool { return machine.Current() == status.Degraded }, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, machine.Reason(), "phone")
}

func TestInvalidConfigFailsStartup(t *testing.T) {
	tempHome(t, "crm-badcfg-*")
	cfg := config.DefaultSession()

	app := fx.New(fx.NopLogger, Module(Params{SessionName: "test", Config: cfg}))
	err := app.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.base_url")
}

func TestProvideFeedDrivers(t *testing.T) {
	cfg := testConfig("http://crm.local")
	for _, driver := range []string{config.DriverRealtime, config.DriverPostgres, config.DriverAMQP, config.DriverMemory} {
		cfg.Feed.Driver = driver
		f, err := provideFeed(cfg, zap.NewNop())
		require.NoError(t, err, driver)
		assert.NotNil(t, f, driver)
	}

	cfg.Feed.Driver = "carrier-pigeon"
	_, err := provideFeed(cfg, zap.NewNop())
	assert.Error(t, err)
}

// TestFxModuleWiring verifies NewServer resolves from Params rather than a
// bare string, and binds the override socket.
func TestFxModuleWiring(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "crm-fx-*")
	require.NoError(t, err)
	defer func() { _ = os.RemoveAll(tmpDir) }()

	socketPath := filepath.Join(tmpDir, "d.sock")
	b := bus.New()
	notes := notify.NewStore(b)

	p := Params{SessionName: "fxtest", SocketPath: socketPath}
	srv, err := NewServer(
		p,
		zap.NewNop(),
		api.NewNotificationService("fxtest", notes, b, nil),
		api.NewConversationService("fxtest", nil, nil, nil, crm.Operator{}, b, nil),
		api.NewMailThreadService(nil, nil, nil, b, nil),
		api.NewSessionService("fxtest", status.NewMachine(b), nil, nil, notes, nil, crm.Operator{}, "memory"),
	)
	require.NoError(t, err, "NewServer() with Params")

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr, "socket not created at %s", socketPath)

	srv.Stop(context.Background())
}
