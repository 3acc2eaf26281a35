package database

import (
	"strings"
	"time"
)

// =============================================================================
// 📋 运行历史数据模型
// =============================================================================

// Run 一次任务分解运行的持久化记录
type Run struct {
	// 计划 ID（uuid）
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// 原始任务描述
	Task string `gorm:"not null" json:"task"`

	// 复杂度档位: simple / medium / complex / epic
	Complexity string `gorm:"size:16;not null" json:"complexity"`

	// MoSCoW 总体优先级: must / should / could / wont
	Priority string `gorm:"size:16;not null" json:"priority"`

	// 子任务数量
	SubtaskCount int `gorm:"not null;default:0" json:"subtask_count"`

	// 参与 Crew 的执行顺序，逗号拼接
	Crews string `gorm:"not null;default:''" json:"crews"`

	// 创建时间
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName 指定表名
func (Run) TableName() string {
	return "runs"
}

// CrewList 返回执行顺序切片
func (r *Run) CrewList() []string {
	if r.Crews == "" {
		return nil
	}
	return strings.Split(r.Crews, ",")
}

// ValidationReport 一次注册表校验的持久化记录
type ValidationReport struct {
	// 自增主键
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	// 校验是否通过
	OK bool `gorm:"column:ok;not null" json:"ok"`

	// 失败时的错误代码（如 CYCLIC_DEPENDENCY），通过时为空
	ErrorCode string `gorm:"size:64" json:"error_code,omitempty"`

	// 失败详情
	Detail string `json:"detail,omitempty"`

	// 通过时的 Crew 执行顺序，逗号拼接
	CrewOrder string `json:"crew_order,omitempty"`

	// 校验耗时（毫秒）
	DurationMS int64 `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	// 创建时间
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName 指定表名
func (ValidationReport) TableName() string {
	return "validation_reports"
}

// OrderList 返回执行顺序切片
func (v *ValidationReport) OrderList() []string {
	if v.CrewOrder == "" {
		return nil
	}
	return strings.Split(v.CrewOrder, ",")
}

// JoinCrews 将执行顺序拼接为存储格式
func JoinCrews(crews []string) string {
	return strings.Join(crews, ",")
}
