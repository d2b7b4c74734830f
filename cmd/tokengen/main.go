// Command tokengen mints access tokens against the dev signing key, so local
// API calls can be made without going through the login endpoint. Tokens
// minted here never validate against a production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"torque/internal/identity/token"
	id "torque/pkg/domain"
)

// Matches config.FromEnv when TORQUE_JWT_SIGNING_KEY is unset.
const devSigningKey = "dev-secret-key-change-in-production"

type tokenOutput struct {
	Token       string `json:"token"`
	PrincipalID string `json:"principal_id"`
	SessionID   string `json:"session_id"`
	Role        string `json:"role,omitempty"`
	ExpiresIn   string `json:"expires_in"`
	Usage       string `json:"usage"`
}

func main() {
	principalFlag := flag.String("principal-id", "", "Principal ID (UUID). Generated if empty.")
	sessionFlag := flag.String("session-id", "", "Session ID (UUID). Generated if empty.")
	role := flag.String("role", "", "Role claim, e.g. province_manager.")
	key := flag.String("key", devSigningKey, "HS256 signing key.")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime.")
	flag.Parse()

	principalID := id.NewPrincipalID()
	if *principalFlag != "" {
		parsed, err := id.ParsePrincipalID(*principalFlag)
		if err != nil {
			fatalf("invalid -principal-id: %v", err)
		}
		principalID = parsed
	}
	sessionID := id.NewSessionID()
	if *sessionFlag != "" {
		parsed, err := uuid.Parse(*sessionFlag)
		if err != nil {
			fatalf("invalid -session-id: %v", err)
		}
		sessionID = id.SessionID(parsed)
	}

	svc := token.NewService(*key, *ttl)
	signed, err := svc.GenerateAccessToken(principalID, sessionID, *role)
	if err != nil {
		fatalf("could not sign token: %v", err)
	}

	out := tokenOutput{
		Token:       signed,
		PrincipalID: principalID.String(),
		SessionID:   sessionID.String(),
		Role:        *role,
		ExpiresIn:   ttl.String(),
		Usage:       fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost:8080/identity/profile", signed),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatalf("encode output: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
