package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port            string
	TeacherLabel    string
	DefaultDuration int // seconds, applied when create-poll omits a duration
	CORSOrigin      string
	ExportEnabled   bool
	ExportFile      string
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "5000")
	c.TeacherLabel = getenv("TEACHER_LABEL", "Teacher")
	c.DefaultDuration = getint("DEFAULT_POLL_DURATION", 60)
	c.CORSOrigin = getenv("CORS_ORIGIN", "*")
	c.ExportEnabled = getenv("EXPORT_ENABLED", "false") == "true"
	c.ExportFile = getenv("EXPORT_FILE", "./classpoll-results.txt")
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
