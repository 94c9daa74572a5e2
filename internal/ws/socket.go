package ws

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/classpoll/backend/internal/config"
	"github.com/classpoll/backend/internal/events"
	"github.com/classpoll/backend/internal/poll"
)

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

type ConnCtx struct {
	Role string
}

// wireNames maps domain event kinds to the socket event names the frontend
// listens on.
var wireNames = map[events.Kind]string{
	events.PollStarted:    "new-poll",
	events.ResultsUpdated: "poll-results",
	events.PollEnded:      "poll-ended",
	events.RosterChanged:  "students-list",
	events.StudentJoined:  "student-joined",
	events.StudentLeft:    "student-left",
	events.HistoryUpdated: "poll-history",
	events.ChatPosted:     "new-message",
	events.Kicked:         "kicked-out",
}

// Server bridges socket.io connections and the poll session. It implements
// events.Sink: the session publishes domain events under its own lock and
// the server fans them out per the routing table in the events package.
type Server struct {
	session *poll.Session
	config  config.Config

	mu    sync.Mutex
	conns map[string]socketio.Conn
}

func New(session *poll.Session, cfg config.Config) *Server {
	srv := &Server{session: session, config: cfg, conns: make(map[string]socketio.Conn)}
	session.SetSink(srv)
	return srv
}

// Publish delivers one domain event to its audience. Called by the session
// with its lock held, which is what preserves per-recipient ordering; none
// of the emits below call back into the session.
func (srv *Server) Publish(ev events.Event) {
	name, ok := wireNames[ev.Kind]
	if !ok {
		return
	}
	switch ev.Kind.Audience() {
	case events.Target:
		c := srv.conn(ev.Target)
		if c == nil {
			return
		}
		c.Emit(name)
		if ev.Kind == events.Kicked {
			// close off the session lock; the disconnect handler's Leave
			// is a no-op since the participant is already gone
			go func() { _ = c.Close() }()
		}
	case events.Teachers:
		for _, c := range srv.snapshot() {
			if ctx, ok := c.Context().(*ConnCtx); ok && ctx.Role == RoleTeacher {
				c.Emit(name, ev.Payload)
			}
		}
	default:
		for _, c := range srv.snapshot() {
			c.Emit(name, ev.Payload)
		}
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		srv.addConn(s)
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	io.OnEvent("/", "join-as-teacher", func(s socketio.Conn) {
		ctx := s.Context().(*ConnCtx)
		ctx.Role = RoleTeacher
		s.Join("teachers")
		log.Info().Str("sid", s.ID()).Msg("join-as-teacher")
		s.Emit("current-poll", srv.session.CurrentPoll())
		s.Emit("students-list", srv.session.Students())
		s.Emit("poll-history", srv.session.History())
	})

	io.OnEvent("/", "join-as-student", func(s socketio.Conn, name string) {
		if strings.TrimSpace(name) == "" {
			srv.advise(s, "Name is required")
			return
		}
		ctx := s.Context().(*ConnCtx)
		ctx.Role = RoleStudent
		s.Join("students")
		p := srv.session.JoinStudent(s.ID(), name)
		log.Info().Str("sid", s.ID()).Str("name", p.Name).Msg("join-as-student")
		s.Emit("current-poll", srv.session.CurrentPoll())
	})

	io.OnEvent("/", "create-poll", func(s socketio.Conn, payload struct {
		Question       string   `json:"question"`
		Options        []string `json:"options"`
		CorrectIndexes []int    `json:"correctIndexes"`
		Duration       int      `json:"duration"`
	}) {
		if reason := validateCreatePoll(payload.Question, payload.Options); reason != "" {
			srv.advise(s, reason)
			return
		}
		p := srv.session.CreatePoll(payload.Question, payload.Options, payload.CorrectIndexes, payload.Duration)
		log.Info().Str("sid", s.ID()).Str("pollId", p.ID).Int("duration", p.Duration).Msg("create-poll")
	})

	io.OnEvent("/", "submit-answer", func(s socketio.Conn, payload struct {
		SelectedOption string `json:"selectedOption"`
	}) {
		if payload.SelectedOption == "" {
			srv.advise(s, "Option is required")
			return
		}
		err := srv.session.SubmitAnswer(s.ID(), payload.SelectedOption)
		if err != nil {
			if reason := adviseReason(err); reason != "" {
				srv.advise(s, reason)
			}
			return
		}
		log.Info().Str("sid", s.ID()).Str("option", payload.SelectedOption).Msg("submit-answer")
	})

	io.OnEvent("/", "kick-student", func(s socketio.Conn, studentID string) {
		log.Info().Str("sid", s.ID()).Str("studentId", studentID).Msg("kick-student")
		srv.session.Kick(studentID)
	})

	io.OnEvent("/", "send-message", func(s socketio.Conn, payload struct {
		Text      string `json:"text"`
		IsTeacher bool   `json:"isTeacher"`
	}) {
		if strings.TrimSpace(payload.Text) == "" {
			srv.advise(s, "Message text is required")
			return
		}
		msg := srv.session.PostMessage(s.ID(), payload.Text, payload.IsTeacher)
		log.Info().Str("sid", s.ID()).Str("sender", msg.Sender).Msg("send-message")
	})

	io.OnEvent("/", "get-chat-history", func(s socketio.Conn) {
		s.Emit("chat-history", srv.session.ChatHistory())
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		srv.removeConn(s)
		srv.session.Leave(s.ID())
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", srv.config.CORSOrigin)
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// advise reports a non-fatal failure to the originating connection only.
func (srv *Server) advise(s socketio.Conn, reason string) {
	s.Emit("poll-error", reason)
}

// adviseReason maps session errors to wire reasons. Unknown participants
// are not advised: a submit racing a kick or leave degrades to a silent
// no-op.
func adviseReason(err error) string {
	switch {
	case errors.Is(err, poll.ErrNoActivePoll):
		return "No active poll"
	case errors.Is(err, poll.ErrAlreadyAnswered):
		return "Already answered"
	case errors.Is(err, poll.ErrUnknownOption):
		return "Unknown option"
	default:
		return ""
	}
}

func validateCreatePoll(question string, options []string) string {
	if strings.TrimSpace(question) == "" {
		return "Question is required"
	}
	if len(options) < 2 {
		return "At least two options are required"
	}
	return ""
}

func (srv *Server) addConn(c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.conns[c.ID()] = c
}

func (srv *Server) removeConn(c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	delete(srv.conns, c.ID())
}

func (srv *Server) conn(id string) socketio.Conn {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.conns[id]
}

func (srv *Server) snapshot() []socketio.Conn {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]socketio.Conn, 0, len(srv.conns))
	for _, c := range srv.conns {
		out = append(out, c)
	}
	return out
}
