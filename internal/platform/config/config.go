package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	SessionTTL    time.Duration

	// AutoApprove routes submissions straight through the approve transition.
	// Development convenience only; production deployments leave it off so
	// every application stays pending until an administrator acts.
	AutoApprove bool

	// ImprovementNoteMin is the minimum length of the note a rejected
	// applicant must supply when reapplying.
	ImprovementNoteMin int

	// Seed populates the stores with the demo roster at startup.
	Seed bool

	// Tracing enables the OpenTelemetry span adapter. Off by default; the
	// noop tracer is used so services can always emit spans unconditionally.
	Tracing bool
}

const (
	defaultAddr               = ":8080"
	defaultSessionTTL         = 24 * time.Hour
	defaultImprovementNoteMin = 20
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("TORQUE_ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	sessionTTL := defaultSessionTTL
	if raw := os.Getenv("TORQUE_SESSION_TTL"); raw != "" {
		if duration, err := time.ParseDuration(raw); err == nil {
			sessionTTL = duration
		}
	}

	noteMin := defaultImprovementNoteMin
	if raw := os.Getenv("TORQUE_IMPROVEMENT_NOTE_MIN"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			noteMin = n
		}
	}

	jwtSigningKey := os.Getenv("TORQUE_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:               addr,
		JWTSigningKey:      jwtSigningKey,
		SessionTTL:         sessionTTL,
		AutoApprove:        os.Getenv("TORQUE_AUTO_APPROVE") == "true",
		ImprovementNoteMin: noteMin,
		Seed:               os.Getenv("TORQUE_SEED") == "true",
		Tracing:            os.Getenv("TORQUE_TRACING") == "true",
	}
}
