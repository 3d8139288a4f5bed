package prover

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileArtifacts loads per-circuit wasm/zkey/vkey files from a single
// directory, named "<circuit>.wasm", "<circuit>.zkey", "<circuit>.vkey.json".
// Grounded on the teacher's SRS-cache directory layout in
// x/qbtc/zk/setup.go, simplified since these artifacts are trusted-setup
// outputs supplied externally rather than generated at runtime.
type FileArtifacts struct {
	Dir string
}

func (f FileArtifacts) Wasm(circuit Circuit) ([]byte, error) {
	return f.read(string(circuit) + ".wasm")
}

func (f FileArtifacts) ZKey(circuit Circuit) ([]byte, error) {
	return f.read(string(circuit) + ".zkey")
}

func (f FileArtifacts) VerificationKey(circuit Circuit) ([]byte, error) {
	return f.read(string(circuit) + ".vkey.json")
}

func (f FileArtifacts) read(name string) ([]byte, error) {
	path := filepath.Join(f.Dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prover: reading %s: %w", path, err)
	}
	return b, nil
}
