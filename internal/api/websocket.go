// websocket.go - WebSocket push of background job progress
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/data-studio/backend/internal/animation"
)

// WebSocket message types for the jobs protocol
const (
	// Client -> Server messages
	MsgTypePing      = "ping"
	MsgTypeSubscribe = "subscribe"

	// Server -> Client messages
	MsgTypePong = "pong"
	MsgTypeJobs = "jobs"
)

// jobsPushInterval is how often active job snapshots are pushed.
const jobsPushInterval = 500 * time.Millisecond

// WSMessage is the envelope for jobs-socket messages.
type WSMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSJobsPayload carries active job snapshots to the client.
type WSJobsPayload struct {
	Type      string          `json:"type"`
	Jobs      []animation.Job `json:"jobs"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocketHandler pushes background job progress over a WebSocket.
type WebSocketHandler struct {
	animMgr  *animation.Manager
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new jobs WebSocket handler
func NewWebSocketHandler(animMgr *animation.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		animMgr: animMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// HandleJobsSocket upgrades the connection and streams job snapshots until
// the client disconnects.
func (wsh *WebSocketHandler) HandleJobsSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Println("[WebSocket] Client connected for job progress")

	wsh.sendMessage(ws, WSMessage{Type: "connected", Timestamp: time.Now().UnixMilli()})

	// Reader goroutine: consume pings and detect disconnect
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg WSMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					fmt.Printf("[WebSocket] Connection error: %v\n", err)
				}
				return
			}
			if msg.Type == MsgTypePing {
				wsh.sendMessage(ws, WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
			}
		}
	}()

	ticker := time.NewTicker(jobsPushInterval)
	defer ticker.Stop()

	var lastCount int
	for {
		select {
		case <-done:
			fmt.Println("[WebSocket] Client disconnected")
			return nil
		case <-ticker.C:
			jobs := wsh.animMgr.ActiveJobs()
			// Keep pushing one final empty snapshot so the client sees
			// completion, then stay quiet until jobs reappear.
			if len(jobs) == 0 && lastCount == 0 {
				continue
			}
			lastCount = len(jobs)
			if jobs == nil {
				jobs = []animation.Job{}
			}
			if err := ws.WriteJSON(WSJobsPayload{
				Type:      MsgTypeJobs,
				Jobs:      jobs,
				Timestamp: time.Now().UnixMilli(),
			}); err != nil {
				return nil
			}
		}
	}
}

func (wsh *WebSocketHandler) sendMessage(ws *websocket.Conn, msg WSMessage) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	ws.WriteJSON(msg)
}
