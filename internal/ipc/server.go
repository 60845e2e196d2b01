package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"log/slog"

	"quill/internal/api"
	"quill/internal/daemon"
	"quill/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName("Quill", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "ipc_accept_failed"),
					logging.String(logging.FieldErrorHint, "check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the socket file manually before the next start"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger.With(logging.String("component", "ipc"))
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.Channels = status.Channels
	resp.Participants = status.Participants
	resp.JournalPath = status.JournalPath
	resp.LockPath = status.LockFilePath
	resp.SocketPath = status.SocketPath
	return nil
}

func (s *service) ChannelList(_ ChannelListRequest, resp *ChannelListResponse) error {
	resp.Channels = s.daemon.Channels(s.ctx)
	return nil
}

func (s *service) ChannelDescribe(req ChannelDescribeRequest, resp *ChannelDescribeResponse) error {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return errors.New("channel describe requires an id")
	}
	detail, err := s.daemon.DescribeChannel(s.ctx, id)
	if err != nil {
		return err
	}
	resp.Channel = detail
	return nil
}

func (s *service) EvictParticipant(req EvictParticipantRequest, resp *EvictParticipantResponse) error {
	if strings.TrimSpace(req.ChannelID) == "" || strings.TrimSpace(req.ParticipantID) == "" {
		return errors.New("evict requires channel and participant ids")
	}
	s.log().Debug("participant eviction requested",
		logging.String(logging.FieldChannel, req.ChannelID),
		logging.String(logging.FieldParticipant, req.ParticipantID))
	if err := s.daemon.EvictParticipant(s.ctx, req.ChannelID, req.ParticipantID); err != nil {
		return err
	}
	resp.Evicted = true
	s.log().Info("participant evicted via IPC",
		logging.String(logging.FieldEventType, "operator_evicted"),
		logging.String(logging.FieldChannel, req.ChannelID),
		logging.String(logging.FieldParticipant, req.ParticipantID))
	return nil
}

func (s *service) RecentEvents(req RecentEventsRequest, resp *RecentEventsResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.daemon.RecentEvents(s.ctx, strings.TrimSpace(req.ChannelID), limit)
	if err != nil {
		return err
	}
	resp.Events = api.FromJournalEntries(entries)
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
