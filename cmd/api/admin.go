package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing/internal/persistence"
	"github.com/spec-kit/ticketing/internal/repository"
	"github.com/spec-kit/ticketing/internal/service"
	"github.com/spec-kit/ticketing/migrations"
)

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema scripts and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), migrations.FS, logger)
	},
}

var createUserCommand = &cobra.Command{
	Use:   "create-user [name] [email] [password]",
	Short: "Add a user who can sign in",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")

		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
			UserRepo: repository.NewUserRepository(pg.PoolHandle()),
		})
		if err != nil {
			return err
		}

		user, err := authService.CreateUser(cmd.Context(), service.CreateUserInput{
			Name:     args[0],
			Email:    args[1],
			Password: args[2],
			Role:     role,
		})
		if err != nil {
			return err
		}

		logger.Info("user created", zap.Int64("user_id", user.ID), zap.String("email", user.Email))
		fmt.Printf("Created user %d (%s)\n", user.ID, user.Email)
		return nil
	},
}

func init() {
	createUserCommand.Flags().String("role", "", "role stored on the user (default \"user\")")
}
