// Command cpauthd runs the Chaum-Pedersen zero-knowledge authentication
// server.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Elvis339/chaum-pedersen-zkp/pkg/auth"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/crypto/group"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/jwt"
	mw "github.com/Elvis339/chaum-pedersen-zkp/pkg/middleware"
	"github.com/Elvis339/chaum-pedersen-zkp/pkg/storage"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "Server address")
		groupName  = flag.String("group", "modp2048", "Group backend (modp2048|ristretto255|secp256k1)")
		keyFile    = flag.String("key", "keys/jwt-signing.pem", "JWT signing key file")
		configFile = flag.String("config", "keys/jwt-config.json", "JWT config file")
		issuer     = flag.String("issuer", "https://auth.cpauth.example", "Credential issuer")
		audience   = flag.String("audience", "cpauth-api", "Credential audience")
		tokenTTL   = flag.Duration("token-ttl", 5*time.Minute, "Credential TTL")
		sessionTTL = flag.Duration("session-ttl", 2*time.Minute, "Login session TTL")
		rateLimit  = flag.Int("rate-limit", 120, "Max requests per minute per client")
		loginLimit = flag.Int("login-rate-limit", 10, "Max login attempts per minute per account")
	)
	flag.Parse()

	log.Println("Starting Chaum-Pedersen auth server...")

	grp, err := group.FromName(*groupName)
	if err != nil {
		log.Fatalf("Unsupported group %q: %v", *groupName, err)
	}
	log.Printf("Using group: %s", grp.Name())
	log.Printf("Rate limit: %d requests/minute per client, %d login attempts/minute per account", *rateLimit, *loginLimit)

	store := storage.NewMemoryStore(*sessionTTL)
	defer store.Close()
	log.Println("Initialized in-memory storage")

	if _, err := os.Stat(*keyFile); os.IsNotExist(err) {
		log.Printf("Key file %s does not exist, generating new key...", *keyFile)
		if err := os.MkdirAll(filepath.Dir(*keyFile), 0700); err != nil {
			log.Fatalf("Failed to create key directory: %v", err)
		}
		if err := jwt.GenerateKeyPairFiles("auth-key-1", *issuer, *keyFile, *configFile); err != nil {
			log.Fatalf("Failed to generate key pair: %v", err)
		}
		log.Printf("Generated new key pair: %s, %s", *keyFile, *configFile)
	}

	signer, err := jwt.NewES256SignerFromFile(*keyFile, *configFile)
	if err != nil {
		log.Fatalf("Failed to create credential signer: %v", err)
	}
	log.Printf("Loaded credential signer with algorithm: %s", signer.Algorithm())

	authConfig := auth.Config{
		Issuer:     *issuer,
		Audience:   *audience,
		TokenTTL:   *tokenTTL,
		SessionTTL: *sessionTTL,
	}
	handlers := auth.NewHandlers(store, grp, signer, nil, authConfig)

	ipLimiter := mw.NewLimiter(*rateLimit, time.Minute)
	defer ipLimiter.Close()
	loginLimiter := mw.NewLimiter(*loginLimit, time.Minute)
	defer loginLimiter.Close()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(ipLimiter.ByClientIP())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok","service":"cpauthd"}`)
	})

	r.Post("/register", handlers.Register)

	r.Route("/auth", func(r chi.Router) {
		r.Use(loginLimiter.ByLoginUser())
		r.Post("/challenge", handlers.Challenge) // interactive, move 1
		r.Post("/verify", handlers.Verify)       // interactive, move 3
		r.Post("/login", handlers.Login)         // non-interactive one-shot
	})

	r.Get("/.well-known/jwks.json", handlers.JWKS)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(signer.JWKS(), *audience))
		r.Get("/me", handlers.WhoAmI)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			stats := store.Stats()
			fmt.Fprintf(w, `{"users":%d,"sessions":%d,"denylist":%d}`,
				stats["users"], stats["sessions"], stats["denylist"])
		})
	})

	log.Printf("Server starting on %s", *addr)
	log.Printf("Issuer: %s", *issuer)
	log.Printf("Audience: %s", *audience)
	log.Printf("Token TTL: %v", *tokenTTL)
	log.Printf("Session TTL: %v", *sessionTTL)
	log.Println()
	log.Println("Endpoints:")
	log.Println("  POST /register               - Register commitment pair")
	log.Println("  POST /auth/challenge         - Interactive login: commitment -> challenge")
	log.Println("  POST /auth/verify            - Interactive login: response -> credential")
	log.Println("  POST /auth/login             - Non-interactive (Fiat-Shamir) login")
	log.Println("  GET  /.well-known/jwks.json  - Credential signing keys")
	log.Println("  GET  /me                     - Credential check (Bearer token)")
	log.Println("  GET  /health                 - Health check")
	log.Println("  GET  /admin/stats            - Storage stats")
	log.Println()

	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
