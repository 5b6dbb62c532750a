package server

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
)

// writeWait bounds a single websocket write
const writeWait = 10 * time.Second

// StreamFrame is the terminal message of a plan stream
type StreamFrame struct {
	Event  string                 `json:"event"`
	Status int                    `json:"status"`
	Type   string                 `json:"type,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
	Detail string                 `json:"detail,omitempty"`
}

func (o planOutcome) frame() StreamFrame {
	if o.status == http.StatusOK {
		return StreamFrame{Event: "result", Status: o.status, Type: o.kind, Data: o.data}
	}
	return StreamFrame{Event: "error", Status: o.status, Detail: o.detail}
}

// streamConn serializes writes from the run and the handler
type streamConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *streamConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// handleStream handles GET /plan/stream. The client sends one plan request;
// run events follow, then a terminal result or error frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Detail: "server is shutting down"})
		return
	}
	defer s.inFlightReqs.Done()

	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxBodyBytes)
	_ = conn.SetReadDeadline(time.Now().Add(s.options.ReadTimeout))

	start := time.Now()
	_, data, err := conn.ReadMessage()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read plan request")
		return
	}

	sc := &streamConn{conn: conn}

	var result planOutcome
	req, err := decodePlanRequest(bytes.NewReader(data))
	if err != nil {
		result = invalidRequest(err)
	} else {
		result = s.runPlan(r.Context(), req, func(e agent.Event) {
			if err := sc.writeJSON(e); err != nil {
				logger.Debug().Err(err).Str("event", string(e.Type)).Msg("Failed to stream event")
			}
		})
	}
	s.metrics.RecordPlanRequest(result.outcome, time.Since(start))

	if err := sc.writeJSON(result.frame()); err != nil {
		logger.Warn().Err(err).Msg("Failed to send plan result")
		return
	}

	sc.mu.Lock()
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	sc.mu.Unlock()
}
