package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-license-keeper/internal/audit"
	"github.com/MKhiriev/go-license-keeper/internal/clock"
	"github.com/MKhiriev/go-license-keeper/internal/config"
	"github.com/MKhiriev/go-license-keeper/internal/crypto"
	"github.com/MKhiriev/go-license-keeper/internal/handler"
	"github.com/MKhiriev/go-license-keeper/internal/logger"
	"github.com/MKhiriev/go-license-keeper/internal/metrics"
	"github.com/MKhiriev/go-license-keeper/internal/server"
	"github.com/MKhiriev/go-license-keeper/internal/service"
	"github.com/MKhiriev/go-license-keeper/internal/store"
	"github.com/MKhiriev/go-license-keeper/internal/utils"
	"github.com/MKhiriev/go-license-keeper/internal/workers"
	"github.com/MKhiriev/go-license-keeper/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	buildInfo := models.NewBuildInfo(buildVersion, buildDate, buildCommit)
	printBuildInfo(buildInfo)

	log := logger.NewLogger("license-keeper")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	log.Debug().
		Str("backend", cfg.Storage.Backend).
		Str("root", cfg.Storage.Root).
		Str("keys_dir", cfg.Storage.KeysDir).
		Dur("sweep_interval", cfg.Workers.SweepInterval).
		Dur("backup_interval", cfg.Workers.BackupInterval).
		Msg("received configs")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
		syscall.SIGQUIT,
	)
	defer stop()

	keyring, err := crypto.OpenKeyring(cfg.Storage.KeysDir, clock.Real(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("error opening keyring")
	}

	hasher, err := crypto.NewPasswordHasher(cfg.Security.HashAlgorithm, cfg.Security.PBKDFIterations)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating password hasher")
	}

	m := metrics.New()

	storages, err := store.NewStorages(ctx, cfg.Storage, keyring, m, clock.Real(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating storages")
	}
	defer func() {
		if err := storages.Repository.Close(); err != nil {
			log.Err(err).Msg("error closing storage")
		}
	}()

	services, err := service.NewServices(ctx, service.Deps{
		Repository: storages.Repository,
		Backups:    storages.Backups,
		Keys:       keyring,
		Hasher:     hasher,
		Audit:      audit.Multi(audit.NewLogSink(log), m),
		BuildInfo:  buildInfo,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error creating services")
	}

	if err := bootstrapAdmin(ctx, services.CredentialStore, cfg.Bootstrap, log); err != nil {
		log.Fatal().Err(err).Msg("error creating the first administrator")
	}

	jobs := workers.NewWorkers(cfg.Workers, services.LicenseManager, services.BackupManager, m, log)
	jobs.Start(ctx)
	defer jobs.Stop()

	handlers, err := handler.NewHandlers(services, m.Handler(), cfg.Metrics, log)
	switch {
	case handler.IsDisabled(err):
		log.Info().Msg("ops listener disabled")
		<-ctx.Done()
	case err != nil:
		log.Fatal().Err(err).Msg("error creating handlers")
	default:
		srv, err := server.NewServer(handlers, cfg.Metrics, log)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating server")
		}
		if err := srv.RunServer(ctx); err != nil {
			log.Err(err).Msg("ops listener stopped")
			stop()
		}
	}

	log.Info().Msg("license keeper stopped")
}

// bootstrapAdmin creates the configured administrator on an empty store.
func bootstrapAdmin(ctx context.Context, credentials service.CredentialStore, cfg config.Bootstrap, log *logger.Logger) error {
	if cfg.AdminUsername == "" {
		if !credentials.HasUsers(ctx) {
			log.Warn().Msg("store has no users and no bootstrap administrator is configured")
		}
		return nil
	}

	id, created, err := credentials.BootstrapAdmin(utils.WithActor(ctx, "bootstrap"), cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		log.Info().Int64("user_id", id).Str("username", cfg.AdminUsername).Msg("first administrator created")
	}
	return nil
}

func printBuildInfo(info models.BuildInfo) {
	fmt.Printf("Build version: %s\n", info.Version())
	fmt.Printf("Build date: %s\n", info.Date())
	fmt.Printf("Build commit: %s\n", info.Commit())
}
