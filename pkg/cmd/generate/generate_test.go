package generate

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/igolaizola/zhiyin"
	"github.com/igolaizola/zhiyin/pkg/studio"
	"go.uber.org/zap"
)

func newProxy(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun(t *testing.T) {
	srv := newProxy(t, http.StatusOK, `{"title":"雨季","versionA":{"lyrics":"雨一直下"},"versionB":{}}`)
	dir := t.TempDir()

	var buf bytes.Buffer
	cfg := &Config{
		Config: zhiyin.Config{StoreConn: filepath.Join(dir, "credits"), Endpoint: srv.URL},
		Hint:   "下雨天",
	}
	if err := run(context.Background(), cfg, zap.NewNop(), &buf); err != nil {
		t.Fatalf("run() err = %v", err)
	}
	if !strings.Contains(buf.String(), "雨一直下") {
		t.Errorf("output missing lyrics:\n%s", buf.String())
	}
	b, err := os.ReadFile(filepath.Join(dir, "credits"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(b)); got != "4" {
		t.Errorf("balance = %s; want 4", got)
	}
}

func TestRunExport(t *testing.T) {
	srv := newProxy(t, http.StatusOK, `{"title":"雨季"}`)
	dir := t.TempDir()
	out := filepath.Join(dir, "songs.csv")

	cfg := &Config{
		Config:   zhiyin.Config{StoreConn: filepath.Join(dir, "credits"), Endpoint: srv.URL},
		Template: "bday",
		Output:   out,
	}
	if err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{}); err != nil {
		t.Fatalf("run() err = %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}

func TestRunFailure(t *testing.T) {
	srv := newProxy(t, http.StatusInternalServerError, `{"error":"Gemini API Call Failed","details":"quota"}`)
	dir := t.TempDir()

	cfg := &Config{
		Config: zhiyin.Config{StoreConn: filepath.Join(dir, "credits"), Endpoint: srv.URL},
		Hint:   "hint",
	}
	err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{})
	if err == nil {
		t.Fatal("run() err = nil; want error")
	}
	if !strings.Contains(err.Error(), "生成遇到问题: Server Error (500): Gemini API Call Failed (quota)") {
		t.Errorf("err = %v", err)
	}
	b, _ := os.ReadFile(filepath.Join(dir, "credits"))
	if got := strings.TrimSpace(string(b)); got != "5" {
		t.Errorf("balance = %s; want 5 after refund", got)
	}
}

func TestRunInsufficient(t *testing.T) {
	srv := newProxy(t, http.StatusOK, `{}`)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "credits"), []byte("0"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{
		Config: zhiyin.Config{StoreConn: filepath.Join(dir, "credits"), Endpoint: srv.URL},
		Hint:   "hint",
	}
	err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{})
	if !errors.Is(err, studio.ErrInsufficientBalance) {
		t.Fatalf("err = %v; want ErrInsufficientBalance", err)
	}
}

func TestRunEmptyHint(t *testing.T) {
	cfg := &Config{Config: zhiyin.Config{StoreConn: filepath.Join(t.TempDir(), "credits")}}
	err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{})
	if !errors.Is(err, zhiyin.ErrEmptyHint) {
		t.Fatalf("err = %v; want ErrEmptyHint", err)
	}
}
