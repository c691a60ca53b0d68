package builder

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML definition and validates it
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Definition, error) {
	var d Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode strategy: %w", err)
	}
	if d.EntryLogic == "" {
		d.EntryLogic = LogicAnd
	}
	if err := Validate(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Load reads and parses a YAML definition file
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Marshal encodes a definition as YAML
func Marshal(d *Definition) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Hash is the SHA256 of the definition's canonical JSON
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(d *Definition) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
