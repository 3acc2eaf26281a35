package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore is a file-based implementation of Store.
// 每个 Crew 一个 JSON 文件（<crew>.json），格式与记忆流一致：
//
//	{"entries": [{"id": "...", "timestamp": "...", "content": "..."}]}
//
// 启动时装入全部文件，写入时先落临时文件再 rename，保证原子性。
// 适合单节点部署。
type FileStore struct {
	dir     string
	entries map[string][]Entry
	mu      sync.RWMutex
	closed  bool
}

// crewFile 是单个 Crew 记忆文件的磁盘格式
type crewFile struct {
	Entries []Entry `json:"entries"`
}

// NewFileStore creates a new file-based crew memory store
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, ErrInvalidInput
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}

	store := &FileStore{
		dir:     dir,
		entries: make(map[string][]Entry),
	}

	// 装入已存在的记忆文件
	if err := store.loadFromDisk(); err != nil {
		return nil, fmt.Errorf("failed to load crew memory from disk: %w", err)
	}

	return store, nil
}

// 从磁盘加载所有 Crew 记忆到内存。损坏的文件跳过，不整体失败。
func (s *FileStore) loadFromDisk() error {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}

	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}

		var cf crewFile
		if err := json.Unmarshal(data, &cf); err != nil {
			continue
		}

		crew := strings.TrimSuffix(name, ".json")
		s.entries[crew] = cf.Entries
	}

	return nil
}

// saveCrew 将单个 Crew 的记忆持久化到磁盘。调用方需持有写锁。
func (s *FileStore) saveCrew(crew string) error {
	data, err := json.MarshalIndent(crewFile{Entries: s.entries[crew]}, "", "  ")
	if err != nil {
		return err
	}

	// 原子写: 写入临时文件后重命名
	crewPath := filepath.Join(s.dir, crew+".json")
	tempPath := crewPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tempPath, crewPath)
}

// Append 追加一条记忆并写穿到磁盘
func (s *FileStore) Append(ctx context.Context, crew string, entry Entry) error {
	if crew == "" || entry.Content == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	fillEntry(&entry)
	s.entries[crew] = append(s.entries[crew], entry)
	return s.saveCrew(crew)
}

// Entries 返回某 Crew 的全部记忆（拷贝），按写入顺序
func (s *FileStore) Entries(ctx context.Context, crew string) ([]Entry, error) {
	if crew == "" {
		return nil, ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	src := s.entries[crew]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}

// Replace 整体替换某 Crew 的记忆并写穿到磁盘
func (s *FileStore) Replace(ctx context.Context, crew string, entries []Entry) error {
	if crew == "" {
		return ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	cp := make([]Entry, len(entries))
	copy(cp, entries)
	s.entries[crew] = cp
	return s.saveCrew(crew)
}

// Crews 返回所有有记忆的 Crew，按字典序
func (s *FileStore) Crews(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	crews := make([]string, 0, len(s.entries))
	for crew := range s.entries {
		crews = append(crews, crew)
	}
	sort.Strings(crews)
	return crews, nil
}

// Ping checks if the store is healthy
func (s *FileStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close closes the store
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return nil
}

var _ Store = (*FileStore)(nil)
