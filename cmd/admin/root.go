package main

import (
	"io"

	"threads/internal/bootstrap"
	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/observability"
	"threads/internal/repository"
	"threads/internal/service"
	"threads/internal/storage"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app holds what the subcommands need. Tests fill it directly; the binary
// builds it from configuration on first use.
type app struct {
	out     io.Writer
	users   *service.UserService
	follows *service.FollowService
	close   func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "threads administration CLI",
		Long:          "Inspect users and the follow graph, and delete accounts with all their content.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.users != nil {
				return nil
			}
			return a.connect()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.close != nil {
				a.close()
			}
		},
	}
	root.SetOut(a.out)
	root.AddCommand(newUsersCmd(a), newFollowsCmd(a))
	return root
}

func (a *app) connect() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	db, rdb, err := bootstrap.InitRuntime(cfg, bootstrap.Options{WithRedis: true})
	if err != nil {
		return err
	}

	uploads := storage.NewLocalStore(cfg.UploadDir, int64(cfg.MaxUploadMB)<<20)
	a.wire(db, cache.New(rdb), uploads)
	a.close = func() { bootstrap.Close(db, rdb) }
	return nil
}

func (a *app) wire(db *gorm.DB, c *cache.Cache, images service.ImageRemover) {
	audit := observability.NewAuditLogger(observability.GlobalLogger)
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	a.users = service.NewUserService(users, follows, c, images, audit)
	a.follows = service.NewFollowService(follows, users, nil, audit)
}
