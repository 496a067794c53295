package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWebSocket(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) wsResponse {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var resp wsResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestWebSocketStatePush(t *testing.T) {
	s, ctrl := newTestServer(t, false)
	conn := dialWebSocket(t, s)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "state"}))
	resp := readWS(t, conn)
	assert.Equal(t, "state", resp.Type)
	require.NotNil(t, resp.Session)
	assert.Equal(t, ctrl.ID().String(), resp.Session.SessionID)
	assert.True(t, resp.Session.ReadyForSave)
	require.NotNil(t, resp.Profile)
	assert.Len(t, resp.Profile.Peaks, 3)
	require.NotNil(t, resp.Numbering)
	assert.Len(t, resp.Numbering.Records, 12)
}

func TestWebSocketEdit(t *testing.T) {
	s, ctrl := newTestServer(t, false)
	conn := dialWebSocket(t, s)

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "edit", Op: "add", X: 8, Y: 0}))
	resp := readWS(t, conn)
	assert.Equal(t, "state", resp.Type)
	require.NotNil(t, resp.Numbering)
	assert.Len(t, resp.Numbering.Records, 13)

	pts, err := ctrl.Points()
	require.NoError(t, err)
	assert.Equal(t, 13, pts.Len())
}

func TestWebSocketBadRequests(t *testing.T) {
	s, _ := newTestServer(t, false)
	conn := dialWebSocket(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	resp := readWS(t, conn)
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "invalid request")

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "telemetry"}))
	resp = readWS(t, conn)
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "unsupported request type")

	require.NoError(t, conn.WriteJSON(wsRequest{Type: "edit", Op: "move", ID: 999}))
	resp = readWS(t, conn)
	assert.Equal(t, "error", resp.Type)
	assert.Contains(t, resp.Error, "unknown point")
}
