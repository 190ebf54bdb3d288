package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mindmovie/internal/fileutil"
	"mindmovie/internal/goals"
	"mindmovie/internal/scenes"
	"mindmovie/internal/services"
)

const (
	StateFile  = "pipeline_state.json"
	GoalsFile  = "goals.json"
	ScenesFile = "scenes.json"
	LockFile   = ".mindmovie.lock"
)

// Store owns the build directory: the state file, the goals and scenes
// artifacts, and the per-scene clip paths. Every mutation is a locked
// load-modify-save cycle so concurrent scene workers never lose updates.
type Store struct {
	buildDir string
	mu       sync.Mutex
	now      func() time.Time
}

// Open prepares a store rooted at buildDir, creating the directory.
func Open(buildDir string) (*Store, error) {
	if buildDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "state", "open", "build directory not configured", nil)
	}
	abs, err := filepath.Abs(buildDir)
	if err != nil {
		return nil, fmt.Errorf("resolve build dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create build dir: %w", err)
	}
	return &Store{buildDir: abs, now: time.Now}, nil
}

// BuildDir returns the absolute build directory.
func (s *Store) BuildDir() string { return s.buildDir }

// StatePath returns the state file location.
func (s *Store) StatePath() string { return filepath.Join(s.buildDir, StateFile) }

// GoalsPath returns the goals artifact location.
func (s *Store) GoalsPath() string { return filepath.Join(s.buildDir, GoalsFile) }

// ScenesPath returns the scenes artifact location.
func (s *Store) ScenesPath() string { return filepath.Join(s.buildDir, ScenesFile) }

// VideoPath is the deterministic clip location for a scene; retries overwrite it.
func (s *Store) VideoPath(sceneIndex int) string {
	return filepath.Join(s.buildDir, fmt.Sprintf("scene_%02d.mp4", sceneIndex))
}

// Exists reports whether a state file is present.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.StatePath())
	return err == nil && !info.IsDir()
}

// LoadOrCreate returns the persisted state, or a fresh QUESTIONNAIRE state
// when none exists. A state file that cannot be decoded is an error.
func (s *Store) LoadOrCreate() (*PipelineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Save stamps updated_at and atomically writes the state file.
func (s *Store) Save(st *PipelineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(st)
}

func (s *Store) loadLocked() (*PipelineState, error) {
	data, err := os.ReadFile(s.StatePath())
	if errors.Is(err, fs.ErrNotExist) {
		now := s.now().UTC()
		return &PipelineState{
			ID:           uuid.NewString(),
			CreatedAt:    now,
			UpdatedAt:    now,
			CurrentStage: StageQuestionnaire,
			SceneAssets:  []SceneAsset{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st PipelineState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, s.StatePath(), err)
	}
	if st.ID == "" || !st.CurrentStage.Valid() {
		return nil, fmt.Errorf("%w: %s: missing id or unknown stage %q", ErrCorruptState, s.StatePath(), st.CurrentStage)
	}
	if st.EstimatedCost < 0 || st.ActualCost < 0 {
		return nil, fmt.Errorf("%w: %s: negative cost", ErrCorruptState, s.StatePath())
	}
	if st.SceneAssets == nil {
		st.SceneAssets = []SceneAsset{}
	}
	return &st, nil
}

func (s *Store) saveLocked(st *PipelineState) error {
	if st == nil {
		return errors.New("save state: nil state")
	}
	st.UpdatedAt = s.now().UTC()
	if st.SceneAssets == nil {
		st.SceneAssets = []SceneAsset{}
	}
	if err := fileutil.WriteJSONAtomic(s.StatePath(), st); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// mutate runs fn against the freshly loaded state and persists the result.
func (s *Store) mutate(fn func(*PipelineState) error) (*PipelineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	if err := s.saveLocked(st); err != nil {
		return nil, err
	}
	return st, nil
}

// SaveGoals writes the goals artifact and returns its path.
func (s *Store) SaveGoals(g *goals.ExtractedGoals) (string, error) {
	path := s.GoalsPath()
	if err := fileutil.WriteJSONAtomic(path, g); err != nil {
		return "", fmt.Errorf("save goals: %w", err)
	}
	return path, nil
}

// LoadGoals reads the goals artifact. ErrNotFound before the questionnaire completes.
func (s *Store) LoadGoals() (*goals.ExtractedGoals, error) {
	data, err := s.readArtifact(s.GoalsPath(), "goals", "run the questionnaire first")
	if err != nil {
		return nil, err
	}
	return goals.Parse(data)
}

// SaveScenes writes the scenes artifact and returns its path.
func (s *Store) SaveScenes(spec *scenes.MindMovieSpec) (string, error) {
	path := s.ScenesPath()
	if err := fileutil.WriteJSONAtomic(path, spec); err != nil {
		return "", fmt.Errorf("save scenes: %w", err)
	}
	return path, nil
}

// LoadScenes reads the scenes artifact. ErrNotFound before scene generation completes.
func (s *Store) LoadScenes() (*scenes.MindMovieSpec, error) {
	data, err := s.readArtifact(s.ScenesPath(), "scenes", "run scene generation first")
	if err != nil {
		return nil, err
	}
	return scenes.Parse(data)
}

func (s *Store) readArtifact(path, name, hint string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrNotFound, "state", "load "+name, fmt.Sprintf("%s not found at %s; %s", name, path, hint), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Clear removes every artifact in the build directory and leaves it empty.
// The build lock file is kept so a holder's lock stays valid.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.buildDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear build dir: %w", err)
	}
	for _, entry := range entries {
		if entry.Name() == LockFile {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.buildDir, entry.Name())); err != nil {
			return fmt.Errorf("clear build dir: %w", err)
		}
	}
	if err := os.MkdirAll(s.buildDir, 0o755); err != nil {
		return fmt.Errorf("recreate build dir: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on the build directory. The returned
// function releases it.
func (s *Store) Lock() (func(), error) {
	lock := flock.New(filepath.Join(s.buildDir, LockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire build lock: %w", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "state", "lock", s.buildDir, ErrBuildLocked)
	}
	return func() { _ = lock.Unlock() }, nil
}
