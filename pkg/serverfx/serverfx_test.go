package serverfx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeydtaylor/steeze-rpc/pkg/whitelist"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("RPCD_TEST_LISTEN", "127.0.0.1:0")
	opts := DefaultOptions()
	opts.ListenAddrEnv = "RPCD_TEST_LISTEN"
	opts.ManifestEnv = "RPCD_TEST_MANIFEST"
	opts.TestModeEnv = "RPCD_TEST_MODE"
	opts.DefaultManifest = filepath.Join(t.TempDir(), "absent.toml")
	return opts
}

func TestModule_ServesRegisteredProcedures(t *testing.T) {
	var (
		h   http.Handler
		reg *whitelist.Registry
	)
	app := fxtest.New(t,
		Module(testOptions(t)),
		fx.Invoke(func(r *whitelist.Registry) {
			whitelist.Register(r, strings.ToUpper, whitelist.AllowGuest(), whitelist.As("upper"))
			reg = r
		}),
		fx.Invoke(fx.Annotate(func(app http.Handler) { h = app }, fx.ParamTags(`name:"app"`))),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.Equal(t, 1, reg.Len())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/method/upper", strings.NewReader(`"ada"`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "ADA", out.Message)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rpc_whitelisted_procedures")
}

func TestModule_ExplicitManifestMustExist(t *testing.T) {
	opts := testOptions(t)
	t.Setenv(opts.ManifestEnv, filepath.Join(t.TempDir(), "missing.toml"))

	app := fx.New(Module(opts), fx.NopLogger)
	require.Error(t, app.Err())
}

func TestProvideFlags(t *testing.T) {
	opts := testOptions(t)
	require.False(t, provideFlags(opts).InTest())

	t.Setenv(opts.TestModeEnv, "TRUE")
	require.True(t, provideFlags(opts).InTest())
}
