package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/ados/types"
)

// SeedFiles 工作区根目录下的通信种子文件
var SeedFiles = []string{"todo.md", "activeContext.md", "progress.md", "techContext.md"}

// seedContent 种子文件的初始内容。内容只是占位标题，
// 系统本身从不解析这些文件。
var seedContent = map[string]string{
	"todo.md":          "# Task Backlog\n",
	"activeContext.md": "# Active Context\n",
	"progress.md":      "# Progress Log\n",
	"techContext.md":   "# Technical Context\n",
}

// DefaultKnowledgeDir 每个 Crew 目录下知识库子目录的默认名称
const DefaultKnowledgeDir = "kb"

// Report 一次检查或初始化的结果
type Report struct {
	// Ready 工作区是否完整（无缺失项）
	Ready bool `json:"ready"`

	// Missing 缺失的路径，相对工作区根目录
	Missing []string `json:"missing,omitempty"`

	// Created 本次创建的路径，相对工作区根目录
	Created []string `json:"created,omitempty"`
}

// Err 返回 Report 对应的错误：工作区完整时为 nil，
// 否则为携带全部缺失路径的 WORKSPACE_NOT_READY。
func (r *Report) Err() error {
	if r.Ready {
		return nil
	}
	return types.NewError(types.ErrWorkspaceNotReady,
		fmt.Sprintf("workspace is missing %d required entries", len(r.Missing))).
		WithIDs(r.Missing...)
}

// Provisioner 创建并校验通信工作区
type Provisioner struct {
	dir          string
	knowledgeDir string
	logger       *zap.Logger
}

// ProvisionerOption configures a Provisioner
type ProvisionerOption func(*Provisioner)

// WithKnowledgeDir 设置 Crew 知识库子目录名
func WithKnowledgeDir(name string) ProvisionerOption {
	return func(p *Provisioner) {
		if name != "" {
			p.knowledgeDir = name
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) ProvisionerOption {
	return func(p *Provisioner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProvisioner creates a provisioner rooted at dir
func NewProvisioner(dir string, opts ...ProvisionerOption) *Provisioner {
	p := &Provisioner{
		dir:          dir,
		knowledgeDir: DefaultKnowledgeDir,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "workspace"))
	return p
}

// Dir returns the workspace root directory
func (p *Provisioner) Dir() string {
	return p.dir
}

// crewPaths 某个 Crew 需要存在的相对路径
func (p *Provisioner) crewPaths(crew string) []string {
	return []string{
		crew,
		filepath.Join(crew, p.knowledgeDir),
		filepath.Join(crew, "runtime.md"),
	}
}

// Check 只读检查工作区。返回缺失项，不做任何写入。
func (p *Provisioner) Check(ctx context.Context, crews []string) (*Report, error) {
	report := &Report{}

	if _, err := os.Stat(p.dir); os.IsNotExist(err) {
		// 根目录缺失时其余路径必然全缺
		report.Missing = append(report.Missing, ".")
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat workspace directory: %w", err)
	}

	for _, name := range SeedFiles {
		if !p.exists(name) {
			report.Missing = append(report.Missing, name)
		}
	}

	for _, crew := range crews {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, rel := range p.crewPaths(crew) {
			if !p.exists(rel) {
				report.Missing = append(report.Missing, rel)
			}
		}
	}

	sort.Strings(report.Missing)
	report.Ready = len(report.Missing) == 0
	return report, nil
}

// Provision 创建缺失的目录与种子文件。force 为 true 时种子文件
// 与 runtime.md 即使已存在也会被重写。每个 Crew 的目录并行创建。
func (p *Provisioner) Provision(ctx context.Context, crews []string, force bool) (*Report, error) {
	report := &Report{}

	if !p.exists(".") {
		if err := os.MkdirAll(p.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create workspace directory: %w", err)
		}
		report.Created = append(report.Created, ".")
	}

	for _, name := range SeedFiles {
		if p.exists(name) && !force {
			continue
		}
		if err := p.writeFile(name, seedContent[name]); err != nil {
			return nil, err
		}
		report.Created = append(report.Created, name)
	}

	// 每个 Crew 一个 goroutine，各自写入独立的结果槽位
	created := make([][]string, len(crews))
	g, gctx := errgroup.WithContext(ctx)
	for i, crew := range crews {
		i, crew := i, crew
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paths, err := p.provisionCrew(crew, force)
			if err != nil {
				return err
			}
			created[i] = paths
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, paths := range created {
		report.Created = append(report.Created, paths...)
	}
	sort.Strings(report.Created)
	report.Ready = true

	if len(report.Created) > 0 {
		p.logger.Info("provisioned workspace",
			zap.String("dir", p.dir),
			zap.Int("created", len(report.Created)))
	}
	return report, nil
}

// provisionCrew 创建单个 Crew 的目录、知识库子目录与 runtime.md
func (p *Provisioner) provisionCrew(crew string, force bool) ([]string, error) {
	var created []string

	crewDir := crew
	if !p.exists(crewDir) {
		created = append(created, crewDir)
	}
	kbDir := filepath.Join(crew, p.knowledgeDir)
	if !p.exists(kbDir) {
		created = append(created, kbDir)
	}
	if err := os.MkdirAll(filepath.Join(p.dir, kbDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create crew directory %s: %w", crew, err)
	}

	runtime := filepath.Join(crew, "runtime.md")
	if !p.exists(runtime) || force {
		content := fmt.Sprintf("# %s Crew Runtime Context\n\n## Initialized: %s\n",
			crew, time.Now().UTC().Format(time.RFC3339))
		if err := p.writeFile(runtime, content); err != nil {
			return nil, err
		}
		created = append(created, runtime)
	}

	return created, nil
}

// exists 判断相对路径是否存在
func (p *Provisioner) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(p.dir, rel))
	return err == nil
}

// writeFile 写入相对路径的文件
func (p *Provisioner) writeFile(rel, content string) error {
	path := filepath.Join(p.dir, rel)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write workspace file %s: %w", rel, err)
	}
	return nil
}
