package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// --- 构造 ---

func TestNewFileWatcher_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.Equal(t, []string{f}, w.Paths())
	assert.False(t, w.IsRunning())
	assert.Equal(t, 1*time.Second, w.pollInterval)
	assert.Equal(t, 100*time.Millisecond, w.debounceDelay)
}

func TestNewFileWatcher_WithOptions(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(20*time.Millisecond),
		WithDebounceDelay(500*time.Millisecond),
		WithWatcherLogger(zap.NewNop()),
	)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, w.pollInterval)
	assert.Equal(t, 500*time.Millisecond, w.debounceDelay)
}

func TestNewFileWatcher_NonExistentPathWarns(t *testing.T) {
	// 尚不存在的路径只告警不报错：等待创建事件
	w, err := NewFileWatcher([]string{"/nonexistent/path/crews.yaml"})
	require.NoError(t, err)
	require.NotNil(t, w)
}

// --- 生命周期 ---

func TestFileWatcher_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("key: val"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	assert.False(t, w.IsRunning())

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	// 重复启动报错
	err = w.Start(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	// 已停止时 Stop 是空操作
	require.NoError(t, w.Stop())
}

// --- 变更回调 ---

func TestFileWatcher_DetectsWrite(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(20*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
	)
	require.NoError(t, err)

	var mu sync.Mutex
	var events []FileEvent
	w.OnChange(func(evt FileEvent) {
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { w.Stop() })

	time.Sleep(50 * time.Millisecond)

	// 修改文件；ModTime 精度有限，显式推后修改时间
	require.NoError(t, os.WriteFile(f, []byte("v2"), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(f, future, future))

	// 等待轮询 + 防抖
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(events), 1, "should detect at least one change")
	assert.Equal(t, f, events[0].Path)
	assert.Equal(t, FileOpWrite, events[0].Op)
}

func TestFileWatcher_DetectsCreate(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "agents.yaml")

	w, err := NewFileWatcher([]string{f},
		WithPollInterval(20*time.Millisecond),
		WithDebounceDelay(20*time.Millisecond),
	)
	require.NoError(t, err)

	var mu sync.Mutex
	var ops []FileOp
	w.OnChange(func(evt FileEvent) {
		mu.Lock()
		ops = append(ops, evt.Op)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { w.Stop() })

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(f, []byte("crew: {}"), 0644))
	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(ops), 1)
	assert.Equal(t, FileOpCreate, ops[0])
}

func TestFileWatcher_CoalescesSamePath(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v0"), 0644))

	w, err := NewFileWatcher([]string{f}, WithDebounceDelay(50*time.Millisecond))
	require.NoError(t, err)

	var mu sync.Mutex
	callCount := 0
	w.OnChange(func(evt FileEvent) {
		mu.Lock()
		callCount++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { w.Stop() })

	// 同一路径的连续事件应合并为一次分发
	for i := 0; i < 3; i++ {
		w.eventChan <- FileEvent{Path: f, Op: FileOpWrite, Timestamp: time.Now()}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, callCount,
		"events for the same path should be coalesced into a single dispatch")
}

func TestFileWatcher_ContextCancel(t *testing.T) {
	tmpDir := t.TempDir()
	f := filepath.Join(tmpDir, "crews.yaml")
	require.NoError(t, os.WriteFile(f, []byte("v1"), 0644))

	w, err := NewFileWatcher([]string{f})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())

	// 取消 context 后 goroutine 退出，running 标志由 Stop 清理
	cancel()
	time.Sleep(100 * time.Millisecond)

	w.Stop()
	assert.False(t, w.IsRunning())
}
