package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/skalibog/sigwatch/internal/ledger"
)

// FileStore хранит журнал в JSON-файле
type FileStore struct {
	path string
}

// NewFileStore создает файловое хранилище журнала
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load читает журнал из файла. Отсутствующий файл дает пустой журнал.
func (s *FileStore) Load(ctx context.Context) (*ledger.Ledger, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения журнала %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ledger.New(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ошибка разбора журнала %s: %w", s.path, err)
	}
	return ledger.FromMap(raw)
}

// Save записывает журнал через временный файл и переименование
func (s *FileStore) Save(ctx context.Context, l *ledger.Ledger) error {
	data, err := json.MarshalIndent(l.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации журнала: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("ошибка сохранения журнала %s: %w", s.path, err)
	}
	return nil
}

// Close ничего не делает
func (s *FileStore) Close() error { return nil }
