// Package main runs the gallery gateway: the JSON API the browser UI
// talks to, backed by a remote ledger (or an in-memory one for local
// development), with health, metrics and status endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"icrc-nft-gallery/internal/candid"
	"icrc-nft-gallery/internal/config"
	"icrc-nft-gallery/internal/domain"
	"icrc-nft-gallery/internal/gateway"
	"icrc-nft-gallery/internal/identity"
	"icrc-nft-gallery/internal/ledger"
	"icrc-nft-gallery/internal/ledger/stub"
	"icrc-nft-gallery/internal/nft"
	"icrc-nft-gallery/internal/principal"
	"icrc-nft-gallery/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the environment.
	listenAddr := flag.String("listen-addr", cfg.ListenAddr, "HTTP listen address")
	ledgerEndpoint := flag.String("ledger-endpoint", cfg.LedgerEndpoint, "Ledger replica endpoint")
	canisterID := flag.String("canister-id", cfg.CanisterID, "NFT ledger canister ID")
	adminPrincipal := flag.String("admin-principal", cfg.AdminPrincipal, "Administrator principal (mint/burn)")
	keystorePath := flag.String("keystore", cfg.KeystorePath, "Identity keystore path")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use an in-memory ledger instead of a remote replica")
	flag.Parse()

	logger := log.New(os.Stdout, "[gallery] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *canisterID == "" {
		logger.Fatal("--canister-id is required (use --use-memory for an in-memory ledger)")
	}

	var admin principal.Principal
	if *adminPrincipal != "" {
		admin, err = principal.FromText(*adminPrincipal)
		if err != nil {
			logger.Fatalf("Invalid --admin-principal: %v", err)
		}
	}

	session := identity.NewSession(identity.SessionOptions{
		KeystorePath: *keystorePath,
		Admin:        admin,
		Logger:       logger,
	})

	client, err := createLedger(cfg, *ledgerEndpoint, *canisterID, *useMemory, admin, session, logger)
	if err != nil {
		logger.Fatalf("Failed to create ledger client: %v", err)
	}

	tokenStore := store.New(client, store.WithLogger(logger))
	service := nft.NewService(nft.ServiceOptions{
		Client:  client,
		Store:   tokenStore,
		Session: session,
		Logger:  logger,
	})

	// An identity change invalidates everything cached from the ledger.
	session.OnChange(func(id identity.Identity) {
		tokenStore.Reset()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ledger.DefaultTimeout)
			defer cancel()
			refresh(ctx, tokenStore, session, logger)
		}()
	})

	server := gateway.New(gateway.Options{
		Store:   tokenStore,
		Service: service,
		Session: session,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Handler(),
	}

	// Initial load; the gateway serves whatever is cached, so a failure
	// here only delays the first render.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ledger.DefaultTimeout)
		defer cancel()
		if _, err := tokenStore.FetchCollection(ctx); err != nil {
			logger.Printf("Initial collection fetch failed: %v", err)
		}
		refresh(ctx, tokenStore, session, logger)
	}()

	// Handle shutdown signals.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// refresh reloads the full token set and, when signed in, the user's
// subset.
func refresh(ctx context.Context, tokenStore *store.TokenStore, session *identity.Session, logger *log.Logger) {
	if _, err := tokenStore.FetchAll(ctx); err != nil {
		logger.Printf("Token fetch failed: %v", err)
		return
	}
	if acct, ok := session.Account(); ok {
		if _, err := tokenStore.FetchMine(ctx, acct); err != nil {
			logger.Printf("Own-token fetch failed: %v", err)
		}
	}
}

// createLedger builds the ledger client: a signing HTTP agent for a
// remote replica, or a seeded in-memory ledger for local development.
func createLedger(cfg *config.Config, endpoint, canisterID string, useMemory bool, admin principal.Principal, session *identity.Session, logger *log.Logger) (ledger.Client, error) {
	if !useMemory {
		logger.Printf("Using ledger canister %s at %s", canisterID, endpoint)
		return ledger.NewAgent(endpoint, canisterID, session), nil
	}

	memLedger := stub.NewLedger(stub.Options{
		Admin:       admin,
		Name:        cfg.CollectionName,
		Symbol:      cfg.CollectionSymbol,
		Description: "Local development collection",
	})
	// The stub has no signed envelopes to read the caller from.
	session.OnChange(func(id identity.Identity) {
		if id == nil {
			memLedger.SetCaller(principal.Anonymous())
			return
		}
		memLedger.SetCaller(id.Principal())
	})
	seedDemoTokens(memLedger, admin)

	logger.Println("Using in-memory ledger")
	return memLedger, nil
}

// seedDemoTokens installs a few tokens so the gallery is not empty on
// first run.
func seedDemoTokens(memLedger *stub.Ledger, admin principal.Principal) {
	if admin.IsZero() {
		return
	}
	owner := domain.DefaultAccount(admin)
	for i := uint64(0); i < 3; i++ {
		memLedger.SeedToken(i, owner, []candid.MapEntry{{
			Key: "icrc97:metadata",
			Value: candid.MapValue(
				candid.MapEntry{Key: "name", Value: candid.TextValue(fmt.Sprintf("Demo Token #%d", i))},
				candid.MapEntry{Key: "description", Value: candid.TextValue("Seeded for local development")},
				candid.MapEntry{Key: "assets", Value: candid.ArrayValue(
					candid.MapValue(
						candid.MapEntry{Key: "url", Value: candid.TextValue(fmt.Sprintf("/demo/%d.png", i))},
						candid.MapEntry{Key: "mime", Value: candid.TextValue("image/png")},
						candid.MapEntry{Key: "purpose", Value: candid.TextValue("icrc97:image")},
					),
				)},
			),
		}})
	}
}
