// Package wire provides dependency injection for hikelog.
// Init builds every service once from the loaded configuration; accessors
// return the singletons.
package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/example/hikelog/internal/adapters/badgerkv"
	cliadapter "github.com/example/hikelog/internal/adapters/cli"
	"github.com/example/hikelog/internal/adapters/filesystem"
	"github.com/example/hikelog/internal/adapters/objectstore"
	"github.com/example/hikelog/internal/adapters/sqlite"
	"github.com/example/hikelog/internal/adapters/surreal"
	"github.com/example/hikelog/internal/app"
	"github.com/example/hikelog/internal/config"
	"github.com/example/hikelog/internal/db"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/ports/primary"
	"github.com/example/hikelog/internal/ports/secondary"
)

// Services is the assembled application.
type Services struct {
	Config       *config.Config
	Holder       *app.AuthStateHolder
	Provider     primary.RepositoryProvider
	Accounts     primary.AccountService
	Hikes        primary.HikeService
	Observations primary.ObservationService
	Migration    primary.MigrationService
	Images       primary.ImageCleanupService
	Activity     primary.ActivityService

	closers []func() error
}

// Build opens the stores named by cfg and assembles the services. The remote
// store and the object store are optional; without them hikelog runs in
// guest-only mode.
func Build(cfg *config.Config) (*Services, error) {
	s := &Services{Config: cfg}
	log := logging.WithComponent("wire")

	// Local stores
	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, database.Close)

	kv, err := badgerkv.Open(cfg.IdentityPath())
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, kv.Close)

	files, err := filesystem.NewAssetStore(cfg.AssetsPath())
	if err != nil {
		s.Close()
		return nil, err
	}

	localHikes := sqlite.NewHikeRepository(database)
	localObservations := sqlite.NewObservationRepository(database)
	assets := sqlite.NewAssetRepository(database)
	logWriter := sqlite.NewLogWriterAdapter(database)
	identity := badgerkv.NewIdentityStore(kv)

	// Remote stores. Interfaces stay nil when unconfigured.
	var (
		remoteHikes        secondary.RemoteHikeRepository
		remoteObservations secondary.RemoteObservationRepository
		authenticator      secondary.Authenticator
		objects            secondary.ObjectStore
	)
	if cfg.Remote.Enabled() {
		client := surreal.NewClient(surreal.Config{
			URL:              cfg.Remote.URL,
			Namespace:        cfg.Remote.Namespace,
			Database:         cfg.Remote.Database,
			Username:         cfg.Remote.Username,
			Password:         cfg.Remote.Password,
			FailureThreshold: cfg.Remote.FailureThreshold,
			BreakerTimeout:   cfg.Remote.BreakerTimeout,
		})
		s.closers = append(s.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Close(ctx)
		})
		remoteHikes = surreal.NewHikeRepository(client)
		remoteObservations = surreal.NewObservationRepository(client)
		authenticator = surreal.NewAuthenticator(client)
	} else {
		log.Info().Msg("no remote store configured, running guest-only")
	}
	if cfg.ObjectStore.Enabled() {
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Bucket:    cfg.ObjectStore.Bucket,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			UseTLS:    cfg.ObjectStore.UseTLS,
			Region:    cfg.ObjectStore.Region,
			URLExpiry: cfg.ObjectStore.URLExpiry,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to configure object store: %w", err)
		}
		objects = store
	}

	policy := cfg.Retry.Policy()

	s.Holder = app.NewAuthStateHolder()
	s.closers = append(s.closers, func() error { s.Holder.Close(); return nil })

	provider := app.NewRepositoryProvider(s.Holder, localHikes, localObservations, remoteHikes, remoteObservations)
	images := app.NewImageAttacher(files, assets, objects, policy, cfg.Local.MaxImageBytes)

	s.Provider = provider
	s.Accounts = app.NewAccountService(s.Holder, identity, authenticator)
	s.Hikes = app.NewHikeService(provider, images, logWriter, policy)
	s.Observations = app.NewObservationService(provider, images, logWriter, policy)
	s.Migration = app.NewMigrationService(
		localHikes, localObservations, assets, files,
		remoteHikes, remoteObservations, objects,
		identity, cfg.Retry.MigrationPolicy(),
	)
	s.Images = app.NewImageCleanupService(assets, files)
	s.Activity = app.NewActivityService(logWriter)
	return s, nil
}

// Close releases every store in reverse order of opening.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

var (
	services *Services
	initErr  error
	once     sync.Once
)

// Init builds the singleton services. Later calls return the first result.
func Init(cfg *config.Config) error {
	once.Do(func() {
		services, initErr = Build(cfg)
	})
	return initErr
}

// Get returns the singleton services. Init must have succeeded.
func Get() *Services {
	if services == nil {
		panic("wire: Init was not called")
	}
	return services
}

// Shutdown closes the singleton services.
func Shutdown() error {
	if services == nil {
		return nil
	}
	return services.Close()
}

// HikeAdapter returns a new HikeAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func HikeAdapter() *cliadapter.HikeAdapter {
	return HikeAdapterWithOutput(os.Stdout)
}

// HikeAdapterWithOutput returns a new HikeAdapter writing to the given output.
func HikeAdapterWithOutput(out io.Writer) *cliadapter.HikeAdapter {
	return cliadapter.NewHikeAdapter(Get().Hikes, out)
}

// ObservationAdapter returns a new ObservationAdapter writing to stdout.
func ObservationAdapter() *cliadapter.ObservationAdapter {
	return cliadapter.NewObservationAdapter(Get().Observations, os.Stdout)
}

// AccountAdapter returns a new AccountAdapter writing to stdout.
func AccountAdapter() *cliadapter.AccountAdapter {
	return cliadapter.NewAccountAdapter(Get().Accounts, os.Stdout)
}

// MigrationAdapter returns a new MigrationAdapter writing to stdout.
func MigrationAdapter() *cliadapter.MigrationAdapter {
	return cliadapter.NewMigrationAdapter(Get().Migration, os.Stdout)
}

// MaintenanceAdapter returns a new MaintenanceAdapter writing to stdout.
func MaintenanceAdapter() *cliadapter.MaintenanceAdapter {
	return cliadapter.NewMaintenanceAdapter(Get().Images, Get().Activity, os.Stdout)
}
