// Package secrets loads the deploy credentials a run may consume.
//
// A secrets file is a flat list of KEY = value lines ('#' starts a
// comment). The file may additionally be sealed with age: a path ending
// in ".age" is decrypted with the identities from an identity file
// before parsing. Secret values are exposed to step arguments through
// the evaluation context under secrets.* and are never logged.
package secrets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"filippo.io/age"
)

// Store holds the loaded secrets for one run.
type Store struct {
	values map[string]string
}

// Empty returns a store with no secrets, used when no secrets file was
// configured.
func Empty() *Store {
	return &Store{values: map[string]string{}}
}

// Load reads a secrets file. If path ends in ".age" an identityPath is
// required and the file is decrypted before parsing.
func Load(path, identityPath string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets file %s: %w", path, err)
	}

	if strings.HasSuffix(path, ".age") {
		if identityPath == "" {
			return nil, fmt.Errorf("secrets file %s is sealed; an identity file is required", path)
		}
		data, err = unseal(data, identityPath)
		if err != nil {
			return nil, fmt.Errorf("unsealing %s: %w", path, err)
		}
	}

	values, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("secrets file %s: %w", path, err)
	}
	return &Store{values: values}, nil
}

// unseal decrypts age ciphertext using the identities found in the
// identity file.
func unseal(ciphertext []byte, identityPath string) ([]byte, error) {
	identityFile, err := os.Open(identityPath)
	if err != nil {
		return nil, fmt.Errorf("identity file: %w", err)
	}
	defer identityFile.Close()

	identities, err := age.ParseIdentities(identityFile)
	if err != nil {
		return nil, fmt.Errorf("parsing identities: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}
	return plaintext, nil
}

func parse(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	for lineNo, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("line %d: expected KEY = value", lineNo+1)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNo+1)
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, nil
}

// Get returns the named secret.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the secret names in sorted order. Names are safe to
// log; values are not.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Values returns a copy of the underlying map for building the
// evaluation context.
func (s *Store) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Len returns the number of loaded secrets.
func (s *Store) Len() int {
	return len(s.values)
}
