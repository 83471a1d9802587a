package census

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ObjectGroup is a run of identical heap objects recorded in a snapshot.
type ObjectGroup struct {
	CoarseType   string   `json:"coarseType"`
	Class        string   `json:"class,omitempty"`
	InternalType string   `json:"internalType,omitempty"`
	Count        int64    `json:"count"`
	Bytes        int64    `json:"bytes"`
	Stack        []string `json:"stack,omitempty"`
}

// HeapSnapshot is the decoded content of a snapshot file.
type HeapSnapshot struct {
	Objects []ObjectGroup `json:"objects"`
}

// Parse decodes a snapshot document.
func Parse(r io.Reader) (*HeapSnapshot, error) {
	var snap HeapSnapshot
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	for i, obj := range snap.Objects {
		if obj.Count < 0 || obj.Bytes < 0 {
			return nil, fmt.Errorf("object group %d: negative count or size", i)
		}
	}
	return &snap, nil
}

// ReadFile parses the snapshot file at path.
func ReadFile(path string) (*HeapSnapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = file.Close() }()

	snap, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}
