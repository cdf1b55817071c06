package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// rotationState is the persisted form of the rotation pointer. The pointer
// must round-trip exactly between runs; callers are expected not to overlap
// invocations against the same state file.
type rotationState struct {
	Pointer int `json:"pointer"`
}

// LoadPointer reads the persisted rotation pointer. A missing file starts
// the rotation at 0.
func LoadPointer(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read rotation state: %w", err)
	}
	var state rotationState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("decode rotation state: %w", err)
	}
	return state.Pointer, nil
}

// SavePointer writes the rotation pointer, creating parent directories as
// needed.
func SavePointer(path string, pointer int) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create rotation state directory: %w", err)
		}
	}
	data, err := json.Marshal(rotationState{Pointer: pointer})
	if err != nil {
		return fmt.Errorf("encode rotation state: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write rotation state: %w", err)
	}
	return nil
}
