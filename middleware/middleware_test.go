package middleware

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAPITokenRequired(t *testing.T) {
	r := gin.New()
	r.GET("/p", APITokenRequired("s3cret"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token s3cret", http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer s3cret", http.StatusNoContent},
		{"bearer s3cret", http.StatusNoContent},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.status {
			t.Fatalf("%q: status %d want %d", tc.header, w.Code, tc.status)
		}
	}
}

func TestLimiterTable(t *testing.T) {
	table := newLimiterTable(2)
	now := time.Now()
	if !table.allow("1.1.1.1", now) {
		t.Fatalf("first request must pass")
	}
	if table.allow("1.1.1.1", now) {
		t.Fatalf("burst of one exceeded")
	}
	if !table.allow("2.2.2.2", now) {
		t.Fatalf("limits are per client")
	}
	if !table.allow("1.1.1.1", now.Add(31*time.Second)) {
		t.Fatalf("token must refill")
	}
}

func TestDiscordSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	key, err := ParsePublicKey(hex.EncodeToString(pub))
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}

	var seen []byte
	r := gin.New()
	r.POST("/interactions", DiscordSignature(key), func(c *gin.Context) {
		seen, _ = io.ReadAll(c.Request.Body)
		c.Status(http.StatusOK)
	})

	body := []byte(`{"type":1}`)
	ts := "1700000000"
	sig := ed25519.Sign(priv, append([]byte(ts), body...))

	req := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", ts)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Equal(seen, body) {
		t.Fatalf("signed request: status=%d body=%q", w.Code, seen)
	}

	req = httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader(body))
	req.Header.Set("X-Signature-Ed25519", hex.EncodeToString(sig))
	req.Header.Set("X-Signature-Timestamp", "1700000001")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered request: status=%d", w.Code)
	}

	if _, err := ParsePublicKey("abcd"); err == nil {
		t.Fatalf("short key accepted")
	}
}
