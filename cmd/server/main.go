package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dvesely/syncroom/internal/adapters/http"
	"github.com/dvesely/syncroom/internal/app"
	"github.com/dvesely/syncroom/internal/auth"
	"github.com/dvesely/syncroom/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	authSvc, err := auth.NewService(cfg.Server.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init auth")
	}
	engine := app.New()

	r := router.SetupRouter(authSvc, engine)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}
	if cfg.TLS() {
		cert, err := loadCertificate(cfg.Certificate)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load certificate")
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	go func() {
		log.Info().Str("addr", addr).Bool("tls", cfg.TLS()).Bool("password", cfg.Server.Password != "").Msg("syncroom server started")
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// loadCertificate reads the PEM pair from disk, decrypting a
// passphrase-protected private key when one is configured.
func loadCertificate(c config.Certificate) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(c.Fullchain)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read fullchain: %w", err)
	}
	keyPEM, err := os.ReadFile(c.Privkey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read privkey: %w", err)
	}
	if c.Passphrase != "" {
		block, _ := pem.Decode(keyPEM)
		if block == nil {
			return tls.Certificate{}, errors.New("privkey is not PEM")
		}
		der, err := x509.DecryptPEMBlock(block, []byte(c.Passphrase)) //nolint:staticcheck // legacy encrypted PEM keys
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("decrypt privkey: %w", err)
		}
		keyPEM = pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der})
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}
