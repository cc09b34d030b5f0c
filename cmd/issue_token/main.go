package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/trainforge-backend/internal/app"
	"github.com/yungbote/trainforge-backend/internal/platform/logger"
	"github.com/yungbote/trainforge-backend/internal/services"
)

// issue_token mints an access token with the configured JWT secret for local testing.
func main() {
	var (
		userID string
		role   string
	)
	flag.StringVar(&userID, "user", "", "user id (random when empty)")
	flag.StringVar(&role, "role", "author", "learner|author|admin")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	id := uuid.New()
	if s := strings.TrimSpace(userID); s != "" {
		if id, err = uuid.Parse(s); err != nil {
			fmt.Printf("invalid -user: %v\n", err)
			os.Exit(1)
		}
	}

	auth := services.NewAuthService(logger.NewNop(), cfg.Auth.JWTSecretKey, cfg.Auth.AccessTokenTTL)
	token, err := auth.IssueToken(id, role)
	if err != nil {
		fmt.Printf("issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("user=%s role=%s ttl=%s\n%s\n", id, role, auth.GetAccessTTL(), token)
}
