package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/campusclock/campusclock/server/timezone"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where campusclock stores its schedule blob
	DSN string
	// Driver is the key-value store driver (sqlite or postgres)
	Driver string
	// Version is the current version of the server
	Version string

	// Timezone is the IANA timezone used for "today" and the alarm clock.
	// Empty means the system local timezone.
	Timezone string

	// AI configuration
	AIBaseURL     string // CAMPUSCLOCK_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey      string // CAMPUSCLOCK_AI_API_KEY
	AIChatModel   string // CAMPUSCLOCK_AI_CHAT_MODEL (default: gpt-4o-mini)
	AIVisionModel string // CAMPUSCLOCK_AI_VISION_MODEL (default: gpt-4o-mini)

	// Schedule derivation thresholds
	FreePeriodGapMinutes  int // gap beyond which a free period is synthesized (default: 15)
	ConsecutiveGapMinutes int // max gap for the consecutive flag (default: 10)
	AlarmLeadMinutes      int // pre-class alarm lead (default: 10)
	TransitionLeadMinutes int // consecutive-transition lead before class end (default: 2)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true when an API key is configured. Without it the
// import and reasoning flows are unavailable and the server runs
// schedule-only.
func (p *Profile) IsAIEnabled() bool {
	return p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

// FromEnv loads configuration from CAMPUSCLOCK_* environment variables.
func (p *Profile) FromEnv() {
	p.Timezone = getEnvOrDefault("CAMPUSCLOCK_TIMEZONE", p.Timezone)

	p.AIBaseURL = getEnvOrDefault("CAMPUSCLOCK_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("CAMPUSCLOCK_AI_API_KEY")
	p.AIChatModel = getEnvOrDefault("CAMPUSCLOCK_AI_CHAT_MODEL", "gpt-4o-mini")
	p.AIVisionModel = getEnvOrDefault("CAMPUSCLOCK_AI_VISION_MODEL", "gpt-4o-mini")

	p.FreePeriodGapMinutes = getIntEnvOrDefault("CAMPUSCLOCK_FREE_PERIOD_GAP_MINUTES", 15)
	p.ConsecutiveGapMinutes = getIntEnvOrDefault("CAMPUSCLOCK_CONSECUTIVE_GAP_MINUTES", 10)
	p.AlarmLeadMinutes = getIntEnvOrDefault("CAMPUSCLOCK_ALARM_LEAD_MINUTES", 10)
	p.TransitionLeadMinutes = getIntEnvOrDefault("CAMPUSCLOCK_TRANSITION_LEAD_MINUTES", 2)
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Data == "" {
		p.Data = "."
	}
	if p.FreePeriodGapMinutes <= 0 {
		p.FreePeriodGapMinutes = 15
	}
	if p.ConsecutiveGapMinutes <= 0 {
		p.ConsecutiveGapMinutes = 10
	}
	if p.AlarmLeadMinutes <= 0 {
		p.AlarmLeadMinutes = 10
	}
	if p.TransitionLeadMinutes <= 0 {
		p.TransitionLeadMinutes = 2
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data dir")
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("campusclock_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}

	return nil
}
