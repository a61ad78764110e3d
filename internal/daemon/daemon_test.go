package daemon

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/autodeployer/internal/config"
	"git.home.luguber.info/inful/autodeployer/internal/deploy"
)

func releaseServer(t *testing.T, tag string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/acme/app/releases/latest", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name":"` + tag + `"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	watch := false
	return &config.Config{
		Repo:             "acme/app",
		ServiceName:      "app",
		TargetDir:        dir,
		StateFile:        filepath.Join(dir, "deployed_tag"),
		MaintenancePort:  config.DefaultMaintenancePort,
		AssetDir:         filepath.Join(dir, "dist"),
		CheckInterval:    time.Hour,
		ReleaseAPIURL:    apiURL,
		ReleaseTimeout:   5 * time.Second,
		HistoryDB:        filepath.Join(dir, "history.db"),
		HistoryRetention: time.Hour,
		WatchStateFile:   &watch,
	}
}

func TestDaemonRunOnceUpToDate(t *testing.T) {
	ts := releaseServer(t, "v1.0")
	cfg := testConfig(t, ts.URL)
	require.NoError(t, os.WriteFile(cfg.StateFile, []byte("v1.0\n"), 0o600))

	d, err := New(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, "v1.0", d.InstalledTag())
	require.Nil(t, d.LastResult())

	res, err := d.RunOnce(t.Context())
	require.NoError(t, err)
	require.Equal(t, deploy.OutcomeUpToDate, res.Outcome)

	last := d.LastResult()
	require.NotNil(t, last)
	require.Equal(t, "up_to_date", last.Outcome)
	require.Equal(t, "idle", d.State())

	events, err := historySource{store: d.history}.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDaemonCheck(t *testing.T) {
	ts := releaseServer(t, "v2.0")
	cfg := testConfig(t, ts.URL)
	cfg.HistoryDB = ""

	d, err := New(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	latest, installed, err := d.Check(t.Context())
	require.NoError(t, err)
	require.Equal(t, "v2.0", latest)
	require.Empty(t, installed)
}

func TestDaemonStateFileChangeFiltersOwnWrites(t *testing.T) {
	ts := releaseServer(t, "v1.0")
	cfg := testConfig(t, ts.URL)
	cfg.HistoryDB = ""

	d, err := New(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.tags.Write("v1.0"))
	d.onStateFileChanged()
	select {
	case <-d.trigger.C():
		t.Fatal("own write must not trigger a cycle")
	default:
	}

	require.NoError(t, os.WriteFile(cfg.StateFile, []byte("v0.9"), 0o600))
	d.onStateFileChanged()
	select {
	case <-d.trigger.C():
	default:
		t.Fatal("external change must trigger a cycle")
	}
}

func TestDaemonAdminEnabledWithHistory(t *testing.T) {
	ts := releaseServer(t, "v1.0")
	cfg := testConfig(t, ts.URL)
	cfg.AdminPort = 9100

	d, err := New(cfg, nil)
	require.NoError(t, err)
	defer d.Close()

	require.NotNil(t, d.admin)
	rec := httptest.NewRecorder()
	d.admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
