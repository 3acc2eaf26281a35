package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/BaSui01/ados/config"
	"github.com/BaSui01/ados/internal/migration"
)

// =============================================================================
// 数据库迁移命令
// =============================================================================

// runMigrate 处理 migrate 命令
func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbType := fs.String("db-type", "", "Database type (postgres, mysql, sqlite)")
	dbURL := fs.String("db-url", "", "Database connection URL")
	direction := fs.String("direction", "up", "Migration direction: up, down, status, version, info")
	steps := fs.Int("steps", 0, "Number of migrations to apply or roll back")
	all := fs.Bool("all", false, "With -direction down, roll back all migrations")
	gotoVersion := fs.Int("goto", -1, "Migrate to a specific schema version")
	forceVersion := fs.Int("force", -1, "Force set the schema version (use with caution)")
	fs.Parse(args)

	migrator, err := newMigrator(*configPath, *dbType, *dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrator: %v\n", err)
		os.Exit(1)
	}
	defer migrator.Close()

	cli := migration.NewCLI(migrator)
	ctx := context.Background()

	switch {
	case *gotoVersion >= 0:
		err = cli.RunGoto(ctx, uint(*gotoVersion))
	case *forceVersion >= 0:
		err = cli.RunForce(ctx, *forceVersion)
	default:
		err = runDirection(ctx, cli, *direction, *steps, *all)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
}

// runDirection 执行方向类迁移动作
func runDirection(ctx context.Context, cli *migration.CLI, direction string, steps int, all bool) error {
	switch direction {
	case "up":
		if steps > 0 {
			return cli.RunSteps(ctx, steps)
		}
		return cli.RunUp(ctx)
	case "down":
		if all {
			return cli.RunDownAll(ctx)
		}
		if steps > 0 {
			return cli.RunSteps(ctx, -steps)
		}
		return cli.RunDown(ctx)
	case "status":
		return cli.RunStatus(ctx)
	case "version":
		return cli.RunVersion(ctx)
	case "info":
		return cli.RunInfo(ctx)
	default:
		printMigrateUsage()
		return fmt.Errorf("unknown migration direction: %s", direction)
	}
}

// newMigrator 按命令行参数创建迁移器，db-type 和 db-url 同时给出时绕过配置文件
func newMigrator(configPath, dbType, dbURL string) (*migration.DefaultMigrator, error) {
	if dbType != "" && dbURL != "" {
		return migration.NewMigratorFromURL(dbType, dbURL)
	}

	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 只覆盖驱动时仍使用配置文件里的连接参数
	if dbType != "" {
		cfg.Database.Driver = dbType
	}
	return migration.NewMigratorFromDatabaseConfig(cfg.Database)
}

// printMigrateUsage 打印 migrate 命令用法
func printMigrateUsage() {
	fmt.Println(`Database Migration Commands

Usage:
  ados migrate [options]

Options:
  -direction <dir>    up, down, status, version, info (default: up)
  -steps <n>          Apply (up) or roll back (down) n migrations
  -all                With -direction down, roll back everything
  -goto <version>     Migrate to a specific schema version
  -force <version>    Force set the schema version (use with caution)
  --config <path>     Path to configuration file (YAML)
  --db-type <type>    Database type: postgres, mysql, sqlite (default: from config)
  --db-url <url>      Database connection URL (default: from config)

Examples:
  ados migrate -direction up
  ados migrate -direction up -steps 1
  ados migrate -direction down
  ados migrate -direction down -all
  ados migrate -direction status
  ados migrate -goto 1
  ados migrate -force 0`)
}
