package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rule-chatbot-be/internal/bootstrap"
	"rule-chatbot-be/internal/config"
	"rule-chatbot-be/internal/server"
	"rule-chatbot-be/pkg/conversation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rulesJSON = `{
  "salutation": {"keywords": ["bonjour"], "reponses": ["Bonjour !"]},
  "jour": {"keywords": ["quel jour"], "reponses": ["Nous sommes {jour}."]}
}`

const factsJSON = `{
  "créateur": {"response": "Un petit assistant à base de règles."}
}`

// emptyWiki answers every lookup with a missing page and no search hit.
func emptyWiki(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("list") == "search" {
			_, _ = io.WriteString(w, `{"query":{"search":[]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"query":{"pages":[{"title":"x","missing":true}]}}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, wikiURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	kbDir := filepath.Join(dir, "knowledge")
	require.NoError(t, os.MkdirAll(kbDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "responses.json"), []byte(rulesJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(kbDir, "facts.json"), []byte(factsJSON), 0o644))

	return &config.Config{
		App: config.AppConfig{
			Port:               "0",
			Environment:        "test",
			LogFilePath:        filepath.Join(dir, "app.log"),
			WebSocketLogPath:   filepath.Join(dir, "websocket.log"),
			CorsAllowedOrigins: "*",
			StaticDir:          filepath.Join(dir, "static"),
			Timezone:           "UTC",
		},
		Knowledge: config.KnowledgeConfig{Dir: kbDir, RulesFile: "responses.json"},
		Session:   config.SessionConfig{Backend: "memory"},
		Search:    config.SearchConfig{WikipediaURL: wikiURL, UserAgent: "integration-test", Timeout: 2 * time.Second},
		Weather:   config.WeatherConfig{BaseURL: "http://127.0.0.1:1", City: "Bamako", Timeout: time.Second},
		Events:    config.EventsConfig{Topic: "chat_interactions"},
	}
}

func ask(t *testing.T, app *fiber.App, question string) map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/get_response", strings.NewReader(url.Values{"question": {question}}.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestChatAPI(t *testing.T) {
	cfg := testConfig(t, emptyWiki(t).URL)

	container, err := bootstrap.NewContainer(cfg)
	require.NoError(t, err)
	defer container.Close()

	app := server.New(cfg, container).GetApp()

	t.Run("rule", func(t *testing.T) {
		assert.Equal(t, map[string]interface{}{"type": "text", "message": "Bonjour !"}, ask(t, app, "Bonjour"))
	})

	t.Run("fact", func(t *testing.T) {
		body := ask(t, app, "qui est ton créateur ?")
		assert.Equal(t, "Un petit assistant à base de règles.", body["message"])
	})

	t.Run("help command", func(t *testing.T) {
		assert.Equal(t, conversation.MsgHelp, ask(t, app, "/aide")["message"])
	})

	t.Run("search mode round trip", func(t *testing.T) {
		assert.Equal(t, conversation.MsgSearchModeOn, ask(t, app, "/recherche")["message"])

		body := ask(t, app, "Zzyzx introuvable")
		assert.Equal(t, "error", body["type"])
		assert.Contains(t, body["message"], "Zzyzx introuvable")
		assert.True(t, strings.HasSuffix(body["message"].(string), conversation.MsgSearchReminder))

		assert.Equal(t, conversation.MsgSearchModeOff, ask(t, app, "quitter")["message"])
		assert.Equal(t, "Bonjour !", ask(t, app, "bonjour")["message"])
	})

	t.Run("fallback", func(t *testing.T) {
		body := ask(t, app, "xyz")
		assert.Contains(t, conversation.FallbackMessages, body["message"])
	})

	t.Run("health", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/health", nil), -1)
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)

		var health map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		assert.EqualValues(t, 2, health["rules"])
		assert.EqualValues(t, 1, health["facts"])
		assert.EqualValues(t, 0, health["connections"])
	})

	t.Run("websocket endpoint rejects plain http", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/ws", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	})
}

func TestChatAPI_MissingKnowledge(t *testing.T) {
	cfg := testConfig(t, emptyWiki(t).URL)
	cfg.Knowledge.Dir = filepath.Join(t.TempDir(), "nope")

	_, err := bootstrap.NewContainer(cfg)
	assert.Error(t, err)
}
