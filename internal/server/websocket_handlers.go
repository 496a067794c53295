package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local tool; the map UI connects from file:// and localhost.
		return true
	},
}

// wsRequest is one client message. "state" pulls a full summary; "edit"
// applies a point edit and then pushes the refreshed summary.
type wsRequest struct {
	Type string  `json:"type"` // "state" or "edit"
	Op   string  `json:"op,omitempty"`
	ID   int64   `json:"id,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// wsResponse is one server push.
type wsResponse struct {
	Type      string             `json:"type"`
	Session   *SessionResponse   `json:"session,omitempty"`
	Profile   *ProfileResponse   `json:"profile,omitempty"`
	Numbering *NumberingResponse `json:"numbering,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// wsHandler upgrades the connection and serves state pushes until the
// client goes away.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	websocketConnections.Inc()
	defer websocketConnections.Dec()
	s.logger.Info("websocket connected", "remote_addr", r.RemoteAddr)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error("websocket read failed", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		websocketMessagesTotal.WithLabelValues("received").Inc()
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(conn, data)
		}
	}
}

func (s *Server) handleWebSocketMessage(conn *websocket.Conn, data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocket(conn, wsResponse{Type: "error", Error: "invalid request: " + err.Error()})
		return
	}
	switch req.Type {
	case "state":
		s.pushState(conn)
	case "edit":
		s.applyWebSocketEdit(conn, req)
	default:
		s.sendWebSocket(conn, wsResponse{Type: "error", Error: "unsupported request type: " + req.Type})
	}
}

func (s *Server) applyWebSocketEdit(conn *websocket.Conn, req wsRequest) {
	_, err := s.applyEdit(req.Op, req.ID, req.X, req.Y)
	if err != nil {
		editRequestsTotal.WithLabelValues(req.Op, "error").Inc()
		s.sendWebSocket(conn, wsResponse{Type: "error", Error: err.Error()})
		return
	}
	editRequestsTotal.WithLabelValues(req.Op, "success").Inc()
	s.pushState(conn)
}

// pushState sends a full session summary to the client.
func (s *Server) pushState(conn *websocket.Conn) {
	resp := wsResponse{Type: "state"}
	sess := SessionResponse{
		SessionID: s.ctrl.ID().String(),
		Config:    s.ctrl.ConfigSnapshot(),
	}
	sess.UndoDepth, sess.RedoDepth = s.ctrl.HistoryDepths()
	if err := s.ctrl.ReadyForSave(); err != nil {
		sess.BlockReason = err.Error()
	} else {
		sess.ReadyForSave = true
	}
	resp.Session = &sess

	if snap, err := s.snapshot(); err == nil {
		sess.Stats = &snap.Stats
		resp.Profile = &ProfileResponse{Profile: snap.Profile, Peaks: snap.Peaks}
		resp.Numbering = &NumberingResponse{
			Records:   snap.Numbering.Records,
			Conflicts: snap.Numbering.Conflicts,
			Examples:  snap.Numbering.ConflictExamples(5),
		}
	} else {
		resp.Error = err.Error()
	}
	s.sendWebSocket(conn, resp)
}

func (s *Server) sendWebSocket(conn *websocket.Conn, resp wsResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshaling websocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("writing websocket message", "error", err)
		return
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
}
