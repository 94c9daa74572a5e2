package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/classpoll/backend/internal/config"
	"github.com/classpoll/backend/internal/poll"
	"github.com/classpoll/backend/internal/ws"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`ClassPoll - Live classroom polling backend

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 5000 or PORT env var)

Environment Variables:
  PORT                   Port to listen on (default: 5000)
  TEACHER_LABEL          Sender label for teacher chat messages (default: Teacher)
  DEFAULT_POLL_DURATION  Poll duration in seconds when unset (default: 60)
  CORS_ORIGIN            Allowed origin for REST and socket traffic (default: *)
  EXPORT_ENABLED         Append ended polls to a results file (default: false)
  EXPORT_FILE            Path of the results file (default: ./classpoll-results.txt)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("ClassPoll %s\n", version)
		return
	}

	// .env is optional; env vars win either way
	_ = godotenv.Load()

	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		status := c.Writer.Status()
		dur := time.Since(start)
		zerologlog.Info().Str("path", path).Int("status", status).Dur("dur", dur).Msg("http")
	})
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.CORSOrigin)
		c.Next()
	})

	// Healthcheck
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Session + socket server
	session := poll.New(cfg.TeacherLabel, cfg.DefaultDuration)
	if cfg.ExportEnabled {
		session.SetExportFile(cfg.ExportFile)
	}
	sock := ws.New(session, cfg)
	io := sock.Mount(r)
	defer io.Close()

	// Read-only poll history for out-of-band callers
	r.GET("/api/poll-history", func(c *gin.Context) {
		c.JSON(http.StatusOK, session.History())
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
