// =============================================================================
// ADOS 主入口
// =============================================================================
// Crew 编排系统命令行入口，包含工作区初始化、注册表校验、任务拆解与
// 运行历史查询
//
// 使用方法:
//
//	ados init                          # 初始化通信工作区
//	ados init --check-only             # 只检查工作区，不写入
//	ados validate                      # 校验 crews/agents 注册表
//	ados run -task "..."               # 拆解任务并记录运行
//	ados agent -id BackendAgent        # 查看 agent 有效能力
//	ados status --detailed             # 查看系统状态
//	ados migrate -direction up         # 运行数据库迁移
//	ados version                       # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/ados/capability"
	"github.com/BaSui01/ados/config"
	"github.com/BaSui01/ados/decomposer"
	"github.com/BaSui01/ados/depgraph"
	"github.com/BaSui01/ados/internal/metrics"
	"github.com/BaSui01/ados/internal/telemetry"
	"github.com/BaSui01/ados/orchestrator"
	"github.com/BaSui01/ados/registry"
	"github.com/BaSui01/ados/workspace"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "run":
		runRun(os.Args[2:])
	case "agent":
		runAgent(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🏗️ init 命令
// =============================================================================

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	force := fs.Bool("force", false, "Rewrite seed files even if they already exist")
	fs.BoolVar(force, "f", false, "Shorthand for --force")
	checkOnly := fs.Bool("check-only", false, "Only check the workspace without modifying it")
	fs.BoolVar(checkOnly, "c", false, "Shorthand for --check-only")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load registry: %v\n", err)
		os.Exit(1)
	}

	prov := workspace.NewProvisioner(cfg.Workspace.Directory,
		workspace.WithKnowledgeDir(cfg.Workspace.KnowledgeDir),
		workspace.WithLogger(logger),
	)
	ctx := context.Background()

	if *checkOnly {
		report, err := prov.Check(ctx, reg.CrewIDs())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Workspace check failed: %v\n", err)
			os.Exit(1)
		}
		printWorkspaceReport(report)
		if !report.Ready {
			os.Exit(1)
		}
		return
	}

	report, err := prov.Provision(ctx, reg.CrewIDs(), *force)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Workspace provisioning failed: %v\n", err)
		os.Exit(1)
	}

	if len(report.Created) == 0 {
		fmt.Println("No actions needed, workspace is complete.")
	} else {
		fmt.Println("Actions taken:")
		for _, name := range report.Created {
			fmt.Printf("  ✓ created %s\n", name)
		}
	}
	fmt.Printf("Workspace ready at %s (%d crews)\n", prov.Dir(), reg.NumCrews())
}

func printWorkspaceReport(report *workspace.Report) {
	if report.Ready {
		fmt.Println("✓ Workspace is complete.")
		return
	}
	fmt.Printf("Workspace is missing %d entries:\n", len(report.Missing))
	for _, name := range report.Missing {
		fmt.Printf("  ✗ %s\n", name)
	}
	fmt.Println("Run 'ados init' to create them.")
}

// =============================================================================
// 🔍 validate 命令
// =============================================================================

func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	order, err := depgraph.NewValidator(logger).Validate(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Registry is valid: %d crews, %d agents\n", reg.NumCrews(), reg.NumAgents())
	fmt.Println("Crew execution order:")
	for i, id := range order {
		fmt.Printf("  %d. %s\n", i+1, id)
	}
	for _, w := range reg.IntegrityWarnings() {
		fmt.Printf("  warning: %s\n", w)
	}
}

// =============================================================================
// 🚀 run 命令
// =============================================================================

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	task := fs.String("task", "", "Task description to decompose")
	fs.Parse(args)

	if *task == "" {
		fmt.Fprintln(os.Stderr, "Usage: ados run -task \"<description>\"")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if otelProviders != nil {
			_ = otelProviders.Shutdown(context.Background())
		}
	}()

	ctx := context.Background()
	orch := newOrchestrator(cfg, logger)
	if err := orch.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	defer orch.Shutdown(context.Background())

	plan, err := orch.Run(ctx, *task)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	printPlan(plan)
}

func printPlan(plan *decomposer.Plan) {
	fmt.Printf("Plan %s\n", plan.ID)
	fmt.Printf("  Task:       %s\n", plan.Task)
	fmt.Printf("  Complexity: %s\n", plan.Complexity)
	fmt.Printf("  Priority:   %s\n", plan.Priority)
	fmt.Printf("  Estimate:   %s\n", plan.EstimatedTime)
	fmt.Printf("  Crew order: %s\n", strings.Join(plan.ExecutionOrder, " -> "))
	fmt.Println("  Subtasks:")
	for _, st := range plan.Subtasks {
		fmt.Printf("    [%s] %s: %s\n", st.Priority, st.Crew, st.Description)
	}
}

// =============================================================================
// 🧩 agent 命令
// =============================================================================

func runAgent(args []string) {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	id := fs.String("id", "", "Agent identifier")
	fs.Parse(args)

	if *id == "" {
		fmt.Fprintln(os.Stderr, "Usage: ados agent -id <AgentID>")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	reg, err := loadRegistry(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	caps, err := capability.NewMatcher(reg, logger).Resolve(*id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Agent %s (crew %s)\n", caps.AgentID, caps.Crew)
	fmt.Println("  Tools:")
	for _, tool := range caps.Tools {
		fmt.Printf("    - %s\n", tool)
	}
	if len(caps.Knowledge) > 0 {
		fmt.Println("  Knowledge:")
		for _, k := range caps.Knowledge {
			fmt.Printf("    - %s\n", k)
		}
	}
}

// =============================================================================
// 📊 status 命令
// =============================================================================

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	detailed := fs.Bool("detailed", false, "Show detailed status information")
	fs.BoolVar(detailed, "d", false, "Shorthand for --detailed")
	jsonOut := fs.Bool("json", false, "Output status as JSON")
	fs.BoolVar(jsonOut, "j", false, "Shorthand for --json")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	orch := newOrchestrator(cfg, logger)
	if err := orch.Initialize(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
	defer orch.Shutdown(context.Background())

	status, err := orch.Status(ctx, *detailed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		out, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}
	printStatus(status)
}

func printStatus(status *orchestrator.Status) {
	fmt.Printf("Initialized: %t\n", status.Initialized)
	fmt.Printf("Crews:  %d (%s)\n", status.Crews.Total, strings.Join(status.Crews.Names, ", "))
	fmt.Printf("Agents: %d (%s)\n", status.Agents.Total, strings.Join(status.Agents.Names, ", "))
	fmt.Printf("Execution order: %s\n", strings.Join(status.ExecutionOrder, " -> "))
	fmt.Println("Crew distribution:")
	for _, id := range status.Crews.Names {
		fmt.Printf("  %s: %d agents\n", id, status.CrewDistribution[id])
	}
	if status.ReloadVersion > 0 {
		fmt.Printf("Reload version: %d\n", status.ReloadVersion)
	}

	for _, w := range status.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if status.Workspace != nil {
		if status.Workspace.Ready {
			fmt.Println("Workspace: ✓ ready")
		} else {
			fmt.Printf("Workspace: ✗ missing %s\n", strings.Join(status.Workspace.Missing, ", "))
		}
	}
	if status.Memory != nil && len(status.Memory.Crews) > 0 {
		fmt.Println("Memory:")
		for _, cs := range status.Memory.Crews {
			fmt.Printf("  %s: %d entries, %.2f MB, ~%d tokens\n", cs.Crew, cs.Entries, cs.SizeMB, cs.Tokens)
		}
	}
	if len(status.RecentRuns) > 0 {
		fmt.Println("Recent runs:")
		for _, run := range status.RecentRuns {
			fmt.Printf("  %s  %-8s  %s\n", run.CreatedAt.Format(time.RFC3339), run.Complexity, run.Task)
		}
	}
	if status.LastValidation != nil {
		v := status.LastValidation
		if v.OK {
			fmt.Printf("Last validation: ✓ ok in %dms (%s)\n", v.DurationMS, strings.Join(v.OrderList(), " -> "))
		} else {
			fmt.Printf("Last validation: ✗ %s: %s\n", v.ErrorCode, v.Detail)
		}
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("ADOS %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
	fmt.Printf("  Go Version: %s\n", runtime.Version())
	fmt.Printf("  Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func printUsage() {
	fmt.Println(`ADOS - AI Dev Orchestration System

Usage:
  ados <command> [options]

Commands:
  init      Provision or check the communication workspace
  validate  Validate the crew/agent registry and print the execution order
  run       Decompose a task into crew subtasks and record the run
  agent     Show the effective capabilities of an agent
  status    Show system status
  migrate   Database migration commands
  version   Show version information
  help      Show this help message

Options for all commands:
  --config <path>   Path to configuration file (YAML)

Examples:
  ados init --check-only
  ados validate
  ados run -task "implement user authentication with jwt"
  ados agent -id BackendAgent
  ados status --detailed --json
  ados migrate -direction up
  ados version`)
}

// =============================================================================
// 🔧 配置与日志初始化
// =============================================================================

// loadConfig 加载并校验配置，失败直接退出
func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// loadRegistry 从配置的 YAML 文件装载注册表
func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	return registry.NewYAMLLoader().LoadFiles(cfg.Registry.CrewsPath(), cfg.Registry.AgentsPath())
}

// newOrchestrator 按配置装配编排器，指标采集按需挂载
func newOrchestrator(cfg *config.Config, logger *zap.Logger) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		opts = append(opts, orchestrator.WithMetrics(metrics.NewCollector(cfg.Metrics.Namespace, logger)))
	}

	orch, err := orchestrator.New(cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create orchestrator: %v\n", err)
		os.Exit(1)
	}
	return orch
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	// 构建 logger
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
