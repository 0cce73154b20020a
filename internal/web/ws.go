package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vadiminshakov/obchart/internal/events"
	"github.com/vadiminshakov/obchart/internal/metrics"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 25 * time.Second
)

// control actions sent by the page over the websocket.
const (
	actionSelect      = "select"
	actionSlider      = "slider"
	actionReplayStart = "replay_start"
	actionReplayStop  = "replay_stop"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type controlMessage struct {
	Action string `json:"action"`
	Time   string `json:"time,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

// wsConn serializes writes to a websocket connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsConn) writeEvent(e events.ChartEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.write(websocket.TextMessage, b)
}

func (s *Server) handleChartWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	ws := &wsConn{conn: conn}
	defer conn.Close()

	sub := s.Surface.Subscribe()
	defer s.Surface.Unsubscribe(sub)

	metrics.StreamClients.WithLabelValues("ws").Inc()
	defer metrics.StreamClients.WithLabelValues("ws").Dec()

	logger := s.logger.With(zap.String("subscriber", sub.ID.String()))
	logger.Debug("chart websocket opened")
	defer logger.Debug("chart websocket closed")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var lastSeq uint64
	for _, e := range s.Surface.Snapshot() {
		if err := ws.writeEvent(e); err != nil {
			return
		}
		lastSeq = e.Seq
	}

	go s.wsWriteLoop(ctx, cancel, ws, sub, lastSeq, logger)
	s.wsReadLoop(ctx, ws, logger)
}

func (s *Server) wsWriteLoop(ctx context.Context, cancel context.CancelFunc, ws *wsConn,
	sub *events.Subscription, lastSeq uint64, logger *zap.Logger) {
	defer cancel()
	// unblocks the read loop
	defer ws.conn.Close()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				logger.Debug("websocket ping failed", zap.Error(err))
				return
			}
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			if e.Seq <= lastSeq {
				continue
			}
			if err := ws.writeEvent(e); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) wsReadLoop(ctx context.Context, ws *wsConn, logger *zap.Logger) {
	conn := ws.conn
	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		if ctx.Err() != nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg controlMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Debug("ignoring malformed control message", zap.Error(err))
			continue
		}
		s.applyControl(msg, logger)
	}
}

func (s *Server) applyControl(msg controlMessage, logger *zap.Logger) {
	switch msg.Action {
	case actionSelect:
		if msg.Time == "" {
			logger.Debug("select message without time")
			return
		}
		s.Controller.SelectTime(msg.Time)
	case actionSlider:
		if msg.Index == nil {
			logger.Debug("slider message without index")
			return
		}
		s.Controller.SelectByIndex(*msg.Index)
	case actionReplayStart:
		s.Controller.StartReplay()
	case actionReplayStop:
		s.Controller.StopReplay()
	default:
		logger.Debug("unknown control action", zap.String("action", msg.Action))
	}
}
