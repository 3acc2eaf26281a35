package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/ados/types"
)

// =============================================================================
// 📜 运行历史存储
// =============================================================================

// RunStore 持久化任务分解运行与注册表校验报告
type RunStore struct {
	pool   *PoolManager
	logger *zap.Logger
}

// NewRunStore creates a run history store over the given pool
func NewRunStore(pool *PoolManager, logger *zap.Logger) *RunStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunStore{
		pool:   pool,
		logger: logger.With(zap.String("component", "run_store")),
	}
}

// RecordRun 记录一次任务分解运行。ID 为空时生成 uuid。
func (s *RunStore) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return types.NewError(types.ErrRunStore, "run record is nil")
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	err := s.pool.WithTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	if err != nil {
		return types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to record run: %v", err)).
			WithIDs(run.ID).WithCause(err)
	}

	s.logger.Debug("recorded run",
		zap.String("run_id", run.ID),
		zap.String("complexity", run.Complexity),
		zap.Int("subtasks", run.SubtaskCount))
	return nil
}

// RecordValidation 记录一次注册表校验报告
func (s *RunStore) RecordValidation(ctx context.Context, report *ValidationReport) error {
	if report == nil {
		return types.NewError(types.ErrRunStore, "validation report is nil")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	if err := s.pool.DB().WithContext(ctx).Create(report).Error; err != nil {
		return types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to record validation report: %v", err)).
			WithCause(err)
	}

	s.logger.Debug("recorded validation report",
		zap.Bool("ok", report.OK),
		zap.String("error_code", report.ErrorCode))
	return nil
}

// RecentRuns 返回最近的运行记录，新的在前
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	var runs []Run
	err := s.pool.DB().WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to list runs: %v", err)).WithCause(err)
	}
	return runs, nil
}

// RecentValidations 返回最近的校验报告，新的在前
func (s *RunStore) RecentValidations(ctx context.Context, limit int) ([]ValidationReport, error) {
	if limit <= 0 {
		limit = 10
	}

	var reports []ValidationReport
	err := s.pool.DB().WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		return nil, types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to list validation reports: %v", err)).WithCause(err)
	}
	return reports, nil
}

// LastValidation 返回最新一条校验报告，没有时返回 (nil, nil)
func (s *RunStore) LastValidation(ctx context.Context) (*ValidationReport, error) {
	var report ValidationReport
	err := s.pool.DB().WithContext(ctx).
		Order("created_at DESC, id DESC").
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to load last validation report: %v", err)).WithCause(err)
	}
	return &report, nil
}

// CountRuns 返回运行记录总数
func (s *RunStore) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.DB().WithContext(ctx).Model(&Run{}).Count(&count).Error
	if err != nil {
		return 0, types.NewError(types.ErrRunStore,
			fmt.Sprintf("failed to count runs: %v", err)).WithCause(err)
	}
	return count, nil
}

// Ping checks the underlying pool
func (s *RunStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool 返回底层连接池管理器
func (s *RunStore) Pool() *PoolManager {
	return s.pool
}

// Close closes the underlying pool
func (s *RunStore) Close() error {
	return s.pool.Close()
}
