// Command tokengen mints access and refresh tokens against a known signing
// secret, for exercising the API locally. Tokens minted here have no backing
// session, so endpoints that validate sessions will still reject them; pair
// with LEGACY_HEADER_AUTH or a seeded session store when that matters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"aureon/internal/auth/token"
	id "aureon/pkg/domain"
)

const devSecret = "dev-secret-key-change-in-production"

type output struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	UserID       string `json:"userId"`
	TenantID     string `json:"tenantId"`
	TenantCode   string `json:"tenantCode"`
	SessionID    string `json:"sessionId"`
	ExpiresIn    string `json:"expiresIn"`
}

func main() {
	var (
		secret     = flag.String("secret", devSecret, "JWT signing secret; must match the server's JWT_SECRET")
		userID     = flag.String("user-id", "", "user ID (UUID), generated if empty")
		tenantID   = flag.String("tenant-id", "", "tenant ID (UUID), generated if empty")
		tenantCode = flag.String("tenant-code", "acme", "tenant code claim")
		email      = flag.String("email", "dev@example.test", "email claim")
		role       = flag.String("role", "staff", "role claim")
		ttl        = flag.Duration("ttl", 24*time.Hour, "access token time-to-live")
		refresh    = flag.Bool("refresh", false, "also mint a refresh token")
		asJSON     = flag.Bool("json", false, "output as JSON")
	)
	flag.Parse()

	principal := token.Principal{
		UserID:     parseOrNewUser(*userID),
		Email:      *email,
		TenantID:   parseOrNewTenant(*tenantID),
		TenantCode: id.TenantCode(*tenantCode),
		Role:       *role,
		SessionID:  id.NewSessionID(),
	}

	svc, err := token.New(*secret, *ttl, 7*24*time.Hour)
	if err != nil {
		fatal(err)
	}

	access, err := svc.IssueAccess(principal)
	if err != nil {
		fatal(err)
	}
	out := output{
		AccessToken: access,
		UserID:      principal.UserID.String(),
		TenantID:    principal.TenantID.String(),
		TenantCode:  principal.TenantCode.String(),
		SessionID:   principal.SessionID.String(),
		ExpiresIn:   ttl.String(),
	}
	if *refresh {
		refreshToken, err := svc.IssueRefresh(principal)
		if err != nil {
			fatal(err)
		}
		out.RefreshToken = refreshToken
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal(err)
		}
		return
	}

	fmt.Printf("User ID:    %s\n", out.UserID)
	fmt.Printf("Tenant ID:  %s\n", out.TenantID)
	fmt.Printf("Tenant:     %s\n", out.TenantCode)
	fmt.Printf("Session ID: %s\n", out.SessionID)
	fmt.Printf("Expires In: %s\n", out.ExpiresIn)
	fmt.Println()
	fmt.Println("Access Token:")
	fmt.Println(out.AccessToken)
	if out.RefreshToken != "" {
		fmt.Println()
		fmt.Println("Refresh Token:")
		fmt.Println(out.RefreshToken)
	}
	fmt.Println()
	fmt.Println(`Usage: curl -H "Authorization: Bearer <token>" http://acme.localhost:8080/...`)
}

func parseOrNewUser(raw string) id.UserID {
	if raw == "" {
		return id.NewUserID()
	}
	parsed, err := id.ParseUserID(raw)
	if err != nil {
		fatal(fmt.Errorf("invalid user-id: %w", err))
	}
	return parsed
}

func parseOrNewTenant(raw string) id.TenantID {
	if raw == "" {
		return id.NewTenantID()
	}
	parsed, err := id.ParseTenantID(raw)
	if err != nil {
		fatal(fmt.Errorf("invalid tenant-id: %w", err))
	}
	return parsed
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
