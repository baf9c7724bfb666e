package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bnema/memsim/internal/config"
	"github.com/bnema/memsim/internal/domain"
	"github.com/bnema/memsim/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	simulationFileMode = 0o600
	simulationDirMode  = 0o700
	tempFilePattern    = ".simulation-*.toml.tmp"
)

// Repository stores the whole simulation in a single TOML file.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SimulationRepository = (*Repository)(nil)

// NewRepository resolves the simulation file from cfg's simulation.path,
// defaulting to ~/.memsim/simulation.toml.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(config.SimulationPathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, config.Dir, config.SimulationFileName)
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &Repository{path: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Snapshot{}, domain.ErrSimulationNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("read simulation file: %w", err)
	}

	var file simulationFileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode simulation file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return domain.Snapshot{}, err
	}
	file.applyDefaults()

	return fromSchema(file), nil
}

func (r *Repository) Save(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := toSchema(snapshot)
	file.applyDefaults()

	return writeTOMLFile(r.path, file)
}

func normalizePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve simulation path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeTOMLFile(path string, file any) error {
	if err := os.MkdirAll(filepath.Dir(path), simulationDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(simulationFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}

	cleanup = false

	return nil
}

func toSchema(snapshot domain.Snapshot) simulationFileSchema {
	file := simulationFileSchema{
		Formula:   snapshot.Formula,
		UpdatedAt: formatTime(snapshot.UpdatedAt),
	}

	for _, memory := range snapshot.Memories {
		file.Memories = append(file.Memories, memorySchema{
			ID:                string(memory.ID),
			Name:              memory.Name,
			Creator:           string(memory.Creator),
			PrincipleVault:    memory.PrincipleVault,
			RevenueVault:      memory.RevenueVault,
			CreatorVault:      memory.CreatorVault,
			TotalMemoryTokens: memory.TotalMemoryTokens,
		})
	}

	for _, user := range snapshot.Users {
		encoded := userSchema{
			Address:        string(user.Address),
			Role:           string(user.Role),
			AttnBalance:    user.AttnBalance,
			InjectedAmount: user.InjectedAmount,
			RedeemedAmount: user.RedeemedAmount,
		}

		ids := make([]string, 0, len(user.MemoryTokens))
		for id := range user.MemoryTokens {
			ids = append(ids, string(id))
		}
		sort.Strings(ids)
		for _, id := range ids {
			encoded.Holdings = append(encoded.Holdings, holdingSchema{
				MemoryID: id,
				Tokens:   user.MemoryTokens[domain.MemoryID(id)],
			})
		}

		for _, position := range user.StakePositions {
			encoded.Positions = append(encoded.Positions, positionSchema{
				MemoryID:     string(position.MemoryID),
				AttnAmount:   position.AttnAmount,
				MemoryTokens: position.MemoryTokens,
				Timestamp:    formatTime(position.Timestamp),
			})
		}

		file.Users = append(file.Users, encoded)
	}

	return file
}

func fromSchema(file simulationFileSchema) domain.Snapshot {
	snapshot := domain.Snapshot{
		Formula:   file.Formula,
		UpdatedAt: parseTime(file.UpdatedAt),
	}

	for _, memory := range file.Memories {
		snapshot.Memories = append(snapshot.Memories, domain.Memory{
			ID:                domain.MemoryID(memory.ID),
			Name:              memory.Name,
			Creator:           domain.Address(memory.Creator),
			PrincipleVault:    memory.PrincipleVault,
			RevenueVault:      memory.RevenueVault,
			CreatorVault:      memory.CreatorVault,
			TotalMemoryTokens: memory.TotalMemoryTokens,
		})
	}

	for _, encoded := range file.Users {
		user := domain.User{
			Address:        domain.Address(encoded.Address),
			Role:           domain.Role(encoded.Role),
			AttnBalance:    encoded.AttnBalance,
			InjectedAmount: encoded.InjectedAmount,
			RedeemedAmount: encoded.RedeemedAmount,
			MemoryTokens:   make(map[domain.MemoryID]float64, len(encoded.Holdings)),
		}
		for _, holding := range encoded.Holdings {
			user.MemoryTokens[domain.MemoryID(holding.MemoryID)] = holding.Tokens
		}
		for _, position := range encoded.Positions {
			user.StakePositions = append(user.StakePositions, domain.StakePosition{
				MemoryID:     domain.MemoryID(position.MemoryID),
				AttnAmount:   position.AttnAmount,
				MemoryTokens: position.MemoryTokens,
				Timestamp:    parseTime(position.Timestamp),
			})
		}

		snapshot.Users = append(snapshot.Users, user)
	}

	return snapshot
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}
