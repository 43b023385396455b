// cmd/seedtoken/main.go: stores a dev Shopify token and prints a session for it,
// so the wizard can be driven locally without running the OAuth install.
// Usage: go run ./cmd/seedtoken -shop demo.myshopify.com -user 1 -token shpat_xxx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/config"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	shop := flag.String("shop", "demo.myshopify.com", "shop domain")
	userID := flag.String("user", "1", "Shopify staff user id")
	token := flag.String("token", "", "Admin API access token (optional)")
	flag.Parse()

	if !infra.ValidShopDomain(*shop) {
		log.Fatalf("invalid shop domain %q", *shop)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect error: %v", err)
	}

	if *token != "" {
		err = repository.NewShopTokenRepository(db).Save(context.Background(), &model.ShopToken{
			Shop:             *shop,
			AssociatedUserID: *userID,
			AccessToken:      *token,
			Scope:            cfg.ShopifyScopes,
		})
		if err != nil {
			log.Fatalf("save token error: %v", err)
		}
	}

	now := time.Now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.SessionClaims{
		Shop:   *shop,
		UserID: *userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *shop + "/" + *userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.SessionTTL())),
		},
	}).SignedString([]byte(cfg.SessionSecret))
	if err != nil {
		log.Fatalf("sign session error: %v", err)
	}
	fmt.Printf("session for %s user %s (valid %s):\n%s\n", *shop, *userID, cfg.SessionTTL(), signed)
}
