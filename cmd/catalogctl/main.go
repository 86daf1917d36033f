// Package main 是流程目录的运维命令行工具：迁移、写入种子数据、重建索引与清理缓存。
package main

import (
	"context"
	"fmt"
	"os"

	"matesl-go/internal/config"
	"matesl-go/internal/repository"
	"matesl-go/internal/seed"
	"matesl-go/internal/service"
	"matesl-go/pkg/database"
	"matesl-go/pkg/es"
	"matesl-go/pkg/log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type options struct {
	configPath string
	sqlitePath string
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.sqlitePath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.SQLite.Path = o.sqlitePath
	}
	log.Init(cfg.Log.Level, "console", "")
	return cfg, nil
}

func (o *options) openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Maintain the government procedure catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "./configs/config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "Use a SQLite database at this path instead of the configured driver")

	root.AddCommand(
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newReindexCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := opts.openDB()
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo users, offices and procedures (idempotent)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, db, err := opts.openDB()
			if err != nil {
				return err
			}
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			sum, err := seed.Run(cmd.Context(), db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users: %d, offices: %d, procedures: %d\n", sum.Users, sum.Offices, sum.Procedures)
			return nil
		},
	}
}

func newReindexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Write every procedure into the Elasticsearch index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, db, err := opts.openDB()
			if err != nil {
				return err
			}
			client, err := es.NewClient(cmd.Context(), cfg.Elasticsearch)
			if err != nil {
				return err
			}
			index := repository.NewProcedureIndex(client, cfg.Elasticsearch.IndexName)
			n, err := service.NewProcedureService(repository.NewProcedureRepository(db), index).Reindex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d procedures into %s\n", n, cfg.Elasticsearch.IndexName)
			return nil
		},
	}
}

func newCacheCmd(opts *options) *cobra.Command {
	var pattern string
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Manage the AI response cache",
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete cached AI responses matching a pattern",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			rdb, err := database.NewRedis(cmd.Context(), cfg.Database.Redis)
			if err != nil {
				return err
			}
			defer rdb.Close()
			svc := service.NewAIService(nil, nil, repository.NewAICacheRepository(rdb), cfg.Cache.TTL)
			n, err := svc.ClearCache(cmd.Context(), pattern)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cached responses\n", n)
			return nil
		},
	}
	clearCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Key pattern inside the ai: keyspace (default all)")
	cache.AddCommand(clearCmd)
	return cache
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
