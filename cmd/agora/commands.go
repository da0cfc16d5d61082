package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/iceymoss/go-agora/internal/server"
	"github.com/iceymoss/go-agora/internal/tasks"
	// import anonymously to register tasks to the list
	_ "github.com/iceymoss/go-agora/internal/tasks/network"
	_ "github.com/iceymoss/go-agora/internal/tasks/topic"
	"github.com/iceymoss/go-agora/pkg/db/objects"
	"github.com/iceymoss/go-agora/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API and the task scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.scheduler.ApplyJobs(cfg.Jobs); err != nil {
				return err
			}
			if n, err := a.scheduler.LoadStoredJobs(ctx, a.jobDefs); err != nil {
				logger.Warn("stored jobs not loaded", zap.Error(err))
			} else {
				logger.Info("stored jobs loaded", zap.Int("jobs", n))
			}
			srv := server.NewServer(cfg.Server, a.services)
			logger.Info("agora starting", zap.String("addr", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
			return srv.Run(ctx)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "memory" {
				return errors.New("nothing to migrate for the memory driver")
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.gorm.AutoMigrate(objects.All()...); err != nil {
				return fmt.Errorf("auto migrate: %w", err)
			}
			logger.Info("migration finished", zap.Int("tables", len(objects.All())))
			return nil
		},
	}
}

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "inspect or run scheduled tasks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list registered tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			crons := make(map[string]string)
			for _, job := range tasks.AutoJobs() {
				crons[job.Name] = job.Cron
			}
			for _, name := range tasks.Names() {
				cron := crons[name]
				if cron == "" {
					cron = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, cron)
			}
			return nil
		},
	})

	var rawParams string
	run := &cobra.Command{
		Use:   "run <name>",
		Short: "run a task once in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params map[string]any
			if rawParams != "" {
				if err := json.Unmarshal([]byte(rawParams), &params); err != nil {
					return fmt.Errorf("parse --params: %w", err)
				}
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.scheduler.RunNow(args[0], params); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task %s finished\n", args[0])
			return nil
		},
	}
	run.Flags().StringVar(&rawParams, "params", "", "task params as a JSON object")
	cmd.AddCommand(run)
	return cmd
}
