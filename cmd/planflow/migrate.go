package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/planflow/internal/migration"
)

// =============================================================================
// 🗄️ 数据库迁移命令
// =============================================================================

var migrateCmd = &cobra.Command{
	Use:   "migrate <command> [arg]",
	Short: "Manage the SQL result store schema",
	Long: `Apply or roll back the allocation_results schema used by the sql
result store.

Commands:
  up          Apply all pending migrations
  down        Roll back the last migration
  down-all    Roll back all migrations
  steps <n>   Apply (n > 0) or roll back (n < 0) n migrations
  goto <v>    Migrate to a specific version
  force <v>   Force set the migration version (use with caution)
  version     Show the current migration version
  status      Show the status of every migration
  info        Show migration summary

The database is taken from the config file unless --db-type and --db-url
are both given.

Examples:
  planflow migrate up
  planflow migrate status --config /etc/planflow/config.yaml
  planflow migrate goto 1 --db-type sqlite --db-url "file:results.db?mode=rwc"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMigrate,
}

var (
	migrateDBType string
	migrateDBURL  string
)

func init() {
	migrateCmd.Flags().StringVar(&migrateDBType, "db-type", "", "Database type: postgres, mysql, sqlite (default: from config)")
	migrateCmd.Flags().StringVar(&migrateDBURL, "db-url", "", "Database connection URL (default: from config)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	migrator, err := createMigrator()
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	cli.SetOutput(cmd.OutOrStdout())
	return cli.Run(cmd.Context(), args[0], args[1:])
}

// createMigrator 优先使用命令行给出的数据库，否则读取配置
func createMigrator() (*migration.DefaultMigrator, error) {
	if migrateDBType != "" && migrateDBURL != "" {
		return migration.NewMigratorFromURL(migrateDBType, migrateDBURL, zap.NewNop())
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if migrateDBType != "" {
		cfg.Database.Driver = migrateDBType
	}
	return migration.NewMigratorFromConfig(cfg, initLogger(cfg.Log))
}
