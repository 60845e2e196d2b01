package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/gorilla/mux"

	"quill/internal/api"
	"quill/internal/config"
	"quill/internal/identity"
	"quill/internal/logging"
	"quill/internal/presence"
)

type apiServer struct {
	bind     string
	logger   *slog.Logger
	daemon   *Daemon
	identity identity.Provider

	listener net.Listener
	router   *mux.Router
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.APIBind())
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:     bind,
		logger:   logger,
		daemon:   d,
		identity: identity.NewHeaderProvider(),
	}

	router := mux.NewRouter()
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/channels", srv.handleChannels).Methods(http.MethodGet)
	router.HandleFunc("/api/channels/{id}", srv.handleChannel).Methods(http.MethodGet)
	router.HandleFunc("/api/events", srv.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/ws/channels/{id}", srv.handleSocket)
	srv.router = router

	srv.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		JournalPath:  status.JournalPath,
		LockFilePath: status.LockFilePath,
		SocketPath:   status.SocketPath,
		Engine: api.EngineStatus{
			Channels:     status.Channels,
			Participants: status.Participants,
		},
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleChannels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.ChannelListResponse{Channels: s.daemon.Channels(r.Context())})
}

func (s *apiServer) handleChannel(w http.ResponseWriter, r *http.Request) {
	channelID := mux.Vars(r)["id"]
	detail, err := s.daemon.DescribeChannel(r.Context(), channelID)
	if err != nil {
		if errors.Is(err, presence.ErrChannelNotFound) {
			s.writeError(w, http.StatusNotFound, "channel not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.ChannelResponse{Channel: detail})
}

func (s *apiServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	channelID := strings.TrimSpace(query.Get("channel"))
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	entries, err := s.daemon.RecentEvents(r.Context(), channelID, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.EventListResponse{Events: api.FromJournalEntries(entries)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
