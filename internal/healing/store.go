package healing

import (
	"canvas-e2e/internal/config"
	"canvas-e2e/internal/entity"
	"canvas-e2e/pkg/apperr"
	"canvas-e2e/pkg/logg"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	knowledgeStoreName = "KnowledgeStore"

	// MaxStrategies caps the learned list kept per description.
	MaxStrategies = 5
)

// KnowledgeStore is the learned strategy table: description to the most
// recently successful strategies, newest first. It is persisted as a flat
// JSON object.
type KnowledgeStore struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	table map[string][]string
}

type StoreParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewKnowledgeStore(params StoreParams) *KnowledgeStore {
	store := NewKnowledgeStoreAt(params.Config.HealingConfig.KnowledgeFile, params.Logger)
	store.Load()

	return store
}

// NewKnowledgeStoreAt returns an empty store bound to path. Call Load to read
// the persisted table.
func NewKnowledgeStoreAt(path string, logger *zap.Logger) *KnowledgeStore {
	return &KnowledgeStore{
		path:   path,
		logger: logger.With(zap.String(logg.Layer, knowledgeStoreName)),
		table:  make(map[string][]string),
	}
}

func (s *KnowledgeStore) Path() string {
	return s.path
}

// Load replaces the in-memory table with the file contents. A missing or
// corrupt file leaves the table empty.
func (s *KnowledgeStore) Load() {
	const op = "Load"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String(logg.Path, s.path))

	table, err := readTable(op, s.path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		logger.Warn("Knowledge file unreadable, starting empty", zap.Error(err))
		s.table = make(map[string][]string)

		return
	}

	s.table = table
	logger.Debug("Knowledge loaded", zap.Int("descriptions", len(table)))
}

func readTable(op, path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string][]string), nil
	}

	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "read_failed",
			apperr.MetaStage:  apperr.StageKnowledge,
			apperr.MetaPath:   path,
		})
	}

	table := make(map[string][]string)
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "corrupt_file",
			apperr.MetaStage:  apperr.StageKnowledge,
			apperr.MetaPath:   path,
		})
	}

	for description, strategies := range table {
		if len(strategies) > MaxStrategies {
			table[description] = strategies[:MaxStrategies]
		}
	}

	return table, nil
}

// Save writes the table as indented JSON, creating the directory if needed.
func (s *KnowledgeStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked()
}

func (s *KnowledgeStore) saveLocked() error {
	const op = "Save"

	data, err := json.MarshalIndent(s.table, "", "  ")
	if err != nil {
		return apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "marshal_failed",
			apperr.MetaStage:  apperr.StageKnowledge,
		})
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageKnowledge,
			apperr.MetaPath:   s.path,
		})
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return apperr.Wrap(op, apperr.CodePersistence, err, map[string]any{
			apperr.MetaReason: "write_failed",
			apperr.MetaStage:  apperr.StageKnowledge,
			apperr.MetaPath:   s.path,
		})
	}

	return nil
}

// Learn prepends strategy to the description's list and flushes the table.
// An exact duplicate is a no-op. Returns whether the table changed. Write
// errors are logged only.
func (s *KnowledgeStore) Learn(description, strategy string) bool {
	const op = "Learn"
	logger := s.logger.With(
		zap.String(logg.Operation, op),
		zap.String(logg.Description, description),
		zap.String(logg.Strategy, strategy))

	if description == "" || strategy == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.table[description]
	for _, known := range current {
		if known == strategy {
			return false
		}
	}

	updated := make([]string, 0, MaxStrategies)
	updated = append(updated, strategy)
	updated = append(updated, current...)

	if len(updated) > MaxStrategies {
		updated = updated[:MaxStrategies]
	}

	s.table[description] = updated
	logger.Info("Learned strategy", zap.Int("known", len(updated)))

	if err := s.saveLocked(); err != nil {
		logger.Error("Failed to persist knowledge", zap.Error(err))
	}

	return true
}

// Strategies returns a copy of the learned list, newest first.
func (s *KnowledgeStore) Strategies(description string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.table[description]
	if len(current) == 0 {
		return nil
	}

	out := make([]string, len(current))
	copy(out, current)

	return out
}

func (s *KnowledgeStore) Stats() entity.KnowledgeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	descriptions := make([]string, 0, len(s.table))
	for description := range s.table {
		descriptions = append(descriptions, description)
	}

	sort.Strings(descriptions)

	return entity.KnowledgeStats{
		TotalLearned: len(descriptions),
		Descriptions: descriptions,
	}
}

// Check reads the knowledge file without touching the in-memory table and
// returns how many descriptions it holds. A missing file counts as empty.
func (s *KnowledgeStore) Check() (int, error) {
	table, err := readTable("Check", s.path)
	if err != nil {
		return 0, err
	}

	return len(table), nil
}
