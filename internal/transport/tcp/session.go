package tcp

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rozmowa/relay-server/internal/config"
	"github.com/rozmowa/relay-server/internal/core"
	"github.com/rozmowa/relay-server/internal/proto"
)

const writeTimeout = 10 * time.Second

// session binds one socket to a core.Session: the read loop decodes
// frames and dispatches commands to the hub, the write loop drains the
// session queue back onto the socket. All outbound traffic, error frames
// included, flows through the queue so the socket has a single writer.
type session struct {
	conn net.Conn
	hub  *core.Hub
	core *core.Session
	log  *zerolog.Logger

	reader      *proto.FrameReader
	writer      *proto.FrameWriter
	idleTimeout time.Duration

	closeOnce sync.Once
}

func newSession(conn net.Conn, hub *core.Hub, cfg config.Config, logger *zerolog.Logger) *session {
	return &session{
		conn:        conn,
		hub:         hub,
		core:        core.NewSession(cfg.SendQueueSize),
		log:         logger,
		reader:      proto.NewFrameReader(conn, cfg.MaxFrameBytes),
		writer:      proto.NewFrameWriter(conn, cfg.MaxFrameBytes),
		idleTimeout: cfg.IdleTimeout,
	}
}

func (c *session) run() {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	if c.identify() {
		c.readLoop()
	}

	// Deregistration closes the queue; the writer drains the remaining
	// frames and closes the socket on its way out.
	c.hub.Unregister(c.core)
	c.core.CloseQueue()
	<-writerDone
}

// identify handles the first frame. Failure sends an error frame and
// ends the session (the original server closes on a bad name too).
func (c *session) identify() bool {
	payload, err := c.read()
	if err != nil {
		c.logReadError(err)
		return false
	}

	username, err := proto.ParseIdentify(payload)
	if err != nil {
		c.log.Warn().Err(err).Str("session_id", c.core.ID).Msg("invalid identify frame")
		c.fail("Username is empty or already taken.")
		return false
	}

	if relayErr := c.hub.Register(c.core, username); relayErr != nil {
		c.log.Info().Str("user", username).Str("remote", c.conn.RemoteAddr().String()).Msg("identify rejected")
		c.fail(relayErr.Message)
		return false
	}

	c.log.Info().Str("user", username).Str("remote", c.conn.RemoteAddr().String()).Msg("client connected")
	return true
}

func (c *session) readLoop() {
	for {
		payload, err := c.read()
		if err != nil {
			c.logReadError(err)
			return
		}

		cmd, err := proto.ParseCommand(payload)
		if err != nil {
			// Malformed frame: report it, then terminate this session only.
			c.log.Warn().Err(err).Str("user", c.core.Name).Msg("protocol error")
			c.fail("Malformed frame.")
			return
		}

		if relayErr := c.dispatch(cmd); relayErr != nil {
			c.core.Enqueue(&core.Event{Kind: core.EventError, Info: relayErr.Message})
		}
	}
}

func (c *session) dispatch(cmd *proto.Inbound) *core.RelayError {
	switch cmd.Command {
	case proto.CommandMessage:
		return c.hub.SendText(c.core, cmd.Room, cmd.Message)
	case proto.CommandCreate:
		return c.hub.CreateRoom(c.core, cmd.Room)
	case proto.CommandJoin:
		return c.hub.JoinRoom(c.core, cmd.Room)
	case proto.CommandSendFile:
		return c.hub.SendFile(c.core, cmd.FileName, cmd.FileData)
	case proto.CommandExitRoom:
		return c.hub.LeaveRoom(c.core, cmd.Room)
	case proto.CommandIdentify:
		return &core.RelayError{Code: core.ErrCodeBadRequest, Message: "Already identified."}
	}
	return &core.RelayError{Code: core.ErrCodeBadRequest, Message: "Unknown command."}
}

func (c *session) read() ([]byte, error) {
	if c.idleTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	}
	return c.reader.ReadFrame()
}

func (c *session) writeLoop() {
	defer c.conn.Close()

	for ev := range c.core.Outbound() {
		payload, err := json.Marshal(outboundFromEvent(ev))
		if err != nil {
			c.log.Error().Err(err).Str("user", c.core.Name).Msg("encode outbound frame")
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.writer.WriteFrame(payload); err != nil {
			c.log.Warn().Err(err).Str("user", c.core.Name).Msg("write frame")
			c.close()
			// Keep draining so the hub-side close can complete.
			for range c.core.Outbound() {
			}
			return
		}
	}
}

// fail queues a final error frame and closes the queue so the writer
// flushes it before the socket goes down.
func (c *session) fail(msg string) {
	c.core.Enqueue(&core.Event{Kind: core.EventError, Info: msg})
	c.core.CloseQueue()
}

// close tears the session down from outside the read loop: deregisters
// from the hub (which closes the queue) and closes the socket to unblock
// a pending read. Idempotent.
func (c *session) close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c.core)
		c.conn.Close()
	})
}

func (c *session) logReadError(err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		c.log.Debug().Str("user", c.core.Name).Msg("connection closed by peer")
	case isTimeout(err):
		c.log.Info().Str("user", c.core.Name).Msg("idle timeout, closing session")
	default:
		c.log.Warn().Err(err).Str("user", c.core.Name).Msg("read frame")
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
