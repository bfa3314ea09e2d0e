package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/igolaizola/zhiyin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, handler http.HandlerFunc) *zhiyin.App {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	app, err := zhiyin.New(context.Background(), &zhiyin.Config{
		StoreConn: filepath.Join(t.TempDir(), "credits"),
		Endpoint:  srv.URL,
	}, nil)
	require.NoError(t, err)
	return app
}

func runSession(t *testing.T, app *zhiyin.App, input string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, newSession(app, strings.NewReader(input), &out).run(context.Background()))
	return out.String()
}

func TestSessionGenerateAndRefine(t *testing.T) {
	var prompts []string
	app := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Prompt string }
		_ = jsonDecode(r, &body)
		prompts = append(prompts, body.Prompt)
		_, _ = w.Write([]byte(`{"title":"夏夜","versionA":{"lyrics":"蝉鸣","sunoPrompt":"lofi"},"versionB":{}}`))
	})

	out := runSession(t, app, "写一首夏天的歌\n:history\n:quit\n")
	assert.Contains(t, out, "《夏夜》")
	assert.Contains(t, out, "4 credits left")
	require.Equal(t, 1, app.Studio.History().Len())

	id := app.Studio.History().List()[0].ID
	out = runSession(t, app, ":refine "+id+" a\n\n:quit\n")
	assert.Contains(t, out, "蝉鸣")
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "蝉鸣")
	assert.Contains(t, prompts[1], "lofi")
	assert.Equal(t, 3, app.Studio.Balance())
	assert.Equal(t, 1, app.Studio.History().Len(), "refined song replaced by the new one")
}

func TestSessionRefineWithChanges(t *testing.T) {
	var prompts []string
	app := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Prompt string }
		_ = jsonDecode(r, &body)
		prompts = append(prompts, body.Prompt)
		_, _ = w.Write([]byte(`{"title":"夏夜","versionA":{"lyrics":"蝉鸣","sunoPrompt":"lofi"},"versionB":{}}`))
	})
	_ = runSession(t, app, "写一首夏天的歌\n")
	require.Len(t, prompts, 1)

	id := app.Studio.History().List()[0].ID
	_ = runSession(t, app, ":refine "+id+" A\n副歌更悲伤一些\n\n:quit\n")
	require.Len(t, prompts, 2, "the empty line after sending must not resend the draft")
	got := prompts[1]
	assert.Contains(t, got, "蝉鸣")
	assert.Contains(t, got, "lofi")
	assert.True(t, strings.HasSuffix(got, "\n副歌更悲伤一些"), "changes go below the refine text: %q", got)
	assert.Equal(t, 3, app.Studio.Balance())
}

func TestSessionFailure(t *testing.T) {
	app := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"CRITICAL: missing API_KEY"}`))
	})
	out := runSession(t, app, "hint\n")
	assert.Contains(t, out, "生成遇到问题: Server Error (500): CRITICAL: missing API_KEY")
	assert.Equal(t, 5, app.Studio.Balance())
}

func TestSessionCatalogCommands(t *testing.T) {
	var calls atomic.Int32
	app := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"title":"t"}`))
	})
	export := filepath.Join(t.TempDir(), "songs.json")
	input := strings.Join([]string{
		":templates",
		":template bday",
		":inspire 1",
		":pricing",
		":credits",
		":bogus",
		"",
		":export " + export,
		":clear",
		":history",
	}, "\n") + "\n"
	out := runSession(t, app, input)

	assert.Contains(t, out, "🎂 生日祝福")
	assert.Contains(t, out, "[Suno Prompt: Acoustic Folk")
	assert.Contains(t, out, "灵感加油包")
	assert.Contains(t, out, "需要 199元/首")
	assert.Contains(t, out, "unknown command :bogus")
	assert.Contains(t, out, "history is empty")
	assert.Equal(t, int32(1), calls.Load(), "empty line sends the drafted inspiration template")

	b, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"title": "t"`)
}

func jsonDecode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
