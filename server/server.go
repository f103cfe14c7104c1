package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xhad/pagecite/internal/logger"
	"github.com/xhad/pagecite/internal/models"
	"github.com/xhad/pagecite/internal/types"
)

// Engine is the question-answering surface the server exposes.
type Engine interface {
	Ask(ctx context.Context, question string) (*models.Answer, error)
	History(ctx context.Context) ([]models.Message, error)
	PageLayout(ctx context.Context, page int) ([]models.LayoutElement, error)
}

type Config struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Message is the websocket envelope in both directions.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

type askRequest struct {
	Question string `json:"question"`
}

type Server struct {
	config   Config
	engine   Engine
	upgrader websocket.Upgrader
}

func NewWithConfig(config Config, engine Engine) *Server {
	if config.Addr == "" {
		config.Addr = ":8000"
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 2 * time.Minute
	}

	s := &Server{config: config, engine: engine}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return s.allowedOrigin(r.Header.Get("Origin")) != ""
		},
	}
	return s
}

// Handler returns the routed handler wrapped with CORS and request ids.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /ask/rag_response", s.handleAsk)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /pages/{page}/layout", s.handleLayout)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/ws", s.handleWebSocket)

	return s.withRequestID(s.withCORS(mux))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	answer, err := s.engine.Ask(ctx, req.Question)
	if err != nil {
		logger.Error("request %s: %v", requestID(r), err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := s.engine.History(r.Context())
	if err != nil {
		logger.Error("request %s: %v", requestID(r), err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(r.PathValue("page"))
	if !ok {
		writeError(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	elements, err := s.engine.PageLayout(r.Context(), page)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, elements)
}

// handleWebSocket answers "question" messages one at a time on a connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("websocket read: %v", err)
			}
			return
		}

		switch msg.Type {
		case "question", "":
			s.sendMessage(conn, Message{Type: "status", Content: "Searching document"})
			ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
			answer, err := s.engine.Ask(ctx, msg.Content)
			cancel()
			if err != nil {
				s.sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("Error: %v", err)})
				continue
			}
			s.sendMessage(conn, Message{Type: "response", Content: answer.Answer, Data: answer})
		case "history":
			messages, err := s.engine.History(r.Context())
			if err != nil {
				s.sendMessage(conn, Message{Type: "error", Content: fmt.Sprintf("Error: %v", err)})
				continue
			}
			s.sendMessage(conn, Message{Type: "history", Data: messages})
		default:
			s.sendMessage(conn, Message{Type: "error", Content: "unknown message type: " + msg.Type})
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		logger.Warn("error sending message: %v", err)
	}
}

func (s *Server) allowedOrigin(origin string) string {
	for _, o := range s.config.AllowedOrigins {
		if o == "*" {
			return "*"
		}
		if origin != "" && o == origin {
			return origin
		}
	}
	return ""
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("%s %s %s (%s)", id, r.Method, r.URL.Path, time.Since(start))
	})
}

// parsePage accepts "3" or "page_3".
func parsePage(v string) (int, bool) {
	page, ok := models.PageNumber(v)
	if !ok {
		n, err := strconv.Atoi(v)
		page, ok = n, err == nil
	}
	return page, ok && page >= 1
}

func requestID(r *http.Request) string {
	return r.Header.Get("X-Request-ID")
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrCompletionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
