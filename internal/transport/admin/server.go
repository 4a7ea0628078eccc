package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/rozmowa/relay-server/internal/core"
	"github.com/rozmowa/relay-server/internal/store"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 500
)

// Server exposes a read-only HTTP surface for operators: health, the live
// presence snapshot, and recent records from the message log.
type Server struct {
	http *http.Server
	log  *zerolog.Logger
}

// RoomResponse is one room in the /api/rooms response.
type RoomResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// MessageResponse is one record in the /api/messages response.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
	FileName  string `json:"file_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the error body for admin endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the admin server on addr.
func NewServer(addr string, hub *core.Hub, st store.Store, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{log: logger}

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.health)
	router.GET("/api/rooms", s.rooms(hub))
	router.GET("/api/messages", s.messages(st))

	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Shutdown stops the admin listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rooms(hub *core.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := hub.Snapshot()
		rooms := lo.Map(snapshot, func(r core.RoomInfo, _ int) RoomResponse {
			return RoomResponse{Room: r.Name, Users: r.Users}
		})
		c.JSON(http.StatusOK, gin.H{"rooms": rooms})
	}
}

func (s *Server) messages(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		room := c.Query("room")

		limit := defaultMessageLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
				return
			}
			limit = min(parsed, maxMessageLimit)
		}

		records, err := st.Recent(c.Request.Context(), room, limit)
		if err != nil {
			s.log.Error().Err(err).Str("room", room).Msg("query recent messages")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}

		messages := lo.Map(records, func(rec store.Record, _ int) MessageResponse {
			return MessageResponse{
				ID:        rec.ID,
				Room:      rec.Room,
				Sender:    rec.Sender,
				Body:      rec.Body,
				FileName:  rec.FileName,
				CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
			}
		})
		c.JSON(http.StatusOK, gin.H{"messages": messages})
	}
}
