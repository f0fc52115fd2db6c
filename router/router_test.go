package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"soundgrid/internal/grid/model"
	"soundgrid/internal/grid/repository"
	"soundgrid/internal/grid/service"
	"soundgrid/socket"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, opts Options) (*httptest.Server, *socket.Hub) {
	t.Helper()
	repo, err := repository.NewFileRepository(t.TempDir())
	require.NoError(t, err)

	hub := socket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	ts := httptest.NewServer(Setup(service.NewGridService(repo, hub), hub, opts))
	t.Cleanup(ts.Close)
	return ts, hub
}

func send(t *testing.T, method, url, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestScenarioWithChangeFeed(t *testing.T) {
	ts, hub := newServer(t, Options{AllowedOrigins: []string{"*"}})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	next := func() socket.WSMessage {
		var msg socket.WSMessage
		conn.SetReadDeadline(time.Now().Add(time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	resp := send(t, http.MethodPost, ts.URL+"/grids", `{"name":"A","grid":[[0,1],[1,0]]}`, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var created model.Grid
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	msg := next()
	assert.Equal(t, model.GridCreated, msg.Type)
	assert.Equal(t, created.ID, msg.GridID)

	var list []model.Grid
	resp = send(t, http.MethodGet, ts.URL+"/grids", "", "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp = send(t, http.MethodPut, ts.URL+"/grids/"+created.ID, `{"name":"B","grid":[[1,1],[0,0]]}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg = next()
	assert.Equal(t, model.GridUpdated, msg.Type)
	assert.JSONEq(t, `{"id":"`+created.ID+`","name":"B","grid":[[1,1],[0,0]]}`, string(msg.Payload))

	resp = send(t, http.MethodDelete, ts.URL+"/grids/"+created.ID, "", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	msg = next()
	assert.Equal(t, model.GridDeleted, msg.Type)

	resp = send(t, http.MethodGet, ts.URL+"/grids", "", "")
	list = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)
}

func TestWriteRoutesRequireTokenWhenSecretSet(t *testing.T) {
	const secret = "router-secret"
	ts, hub := newServer(t, Options{AllowedOrigins: []string{"*"}, JWTSecret: secret})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	resp := send(t, http.MethodPost, ts.URL+"/grids", `{"name":"A","grid":[]}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Reads stay open.
	resp = send(t, http.MethodGet, ts.URL+"/grids", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	resp = send(t, http.MethodPost, ts.URL+"/grids", `{"name":"A","grid":[]}`, token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The change event names the token's subject.
	var msg socket.WSMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, model.GridCreated, msg.Type)
	assert.Equal(t, "user-1", msg.UserID)
}

func TestPreflightAndMethodNotAllowed(t *testing.T) {
	ts, _ := newServer(t, Options{AllowedOrigins: []string{"*"}})

	resp := send(t, http.MethodOptions, ts.URL+"/grids/anything", "", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = send(t, http.MethodPatch, ts.URL+"/grids/anything", "{}", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
