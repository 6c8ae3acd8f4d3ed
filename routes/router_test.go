package routes

import (
	"crypto/ed25519"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/cppla/frypillows/config"
	"github.com/cppla/frypillows/settings"
	"github.com/cppla/frypillows/storage"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.AppConfig{
		APIToken:           "s3cret",
		GinMode:            "test",
		GinPath:            filepath.Join(t.TempDir(), "gin.log"),
		LogLevel:           "info",
		RateLimitPerMinute: 600,
		MaxUploadMB:        1,
		AllowedOrigins:     []string{"*"},
	}
	return SetupRouter(cfg, Deps{
		Buckets: storage.Buckets{
			Pending: storage.NewMemoryStore("pending"),
			Pillows: storage.NewMemoryStore("pillows"),
			Photos:  storage.NewMemoryStore("photos"),
		},
		Settings:  settings.NewMemoryStore(),
		PublicKey: pub,
	})
}

func TestRouterAuth(t *testing.T) {
	r := testRouter(t)
	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/pillow/list", "", http.StatusUnauthorized},
		{http.MethodGet, "/pillow/list", "s3cret", http.StatusOK},
		{http.MethodGet, "/photos/list", "s3cret", http.StatusOK},
		{http.MethodGet, "/settings/g1", "s3cret", http.StatusOK},
		{http.MethodGet, "/pillow/image/missing", "s3cret", http.StatusNotFound},
		{http.MethodPost, "/interactions", "", http.StatusUnauthorized},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("%s %s: status %d want %d", tc.method, tc.path, w.Code, tc.status)
		}
	}
}
