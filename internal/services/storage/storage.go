// Package storage provides transparent, atomically-written file access
// for uploads and graph snapshots, with optional at-rest encryption.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
)

const (
	// ageHeader is the prefix of age-encrypted files
	ageHeader = "age-encryption.org"

	// markerFile indicates encryption is enabled for the base directory
	markerFile = ".encrypted"

	// verifyFile is used to validate the password
	verifyFile = ".encryption-verify"

	// verifyMagic is the expected content in the verify file
	verifyMagic = `{"magic":"flowgraph-encryption-verify","version":1}`
)

// Store provides encrypted/unencrypted file access rooted at one
// directory. Writers never leave a truncated file behind: every write
// goes through a temp file and an atomic rename.
type Store struct {
	baseDir   string
	encrypted bool
	identity  *age.ScryptIdentity
	recipient *age.ScryptRecipient
	mu        sync.RWMutex
}

// New creates a Store for the given base directory
func New(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", baseDir, err)
	}

	s := &Store{baseDir: baseDir}

	if _, err := os.Stat(filepath.Join(baseDir, markerFile)); err == nil {
		s.encrypted = true
	}

	return s, nil
}

// BaseDir returns the base directory
func (s *Store) BaseDir() string {
	return s.baseDir
}

// IsEncrypted returns true if the directory is marked encrypted
func (s *Store) IsEncrypted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encrypted
}

// IsUnlocked returns true if the store can decrypt its files
func (s *Store) IsUnlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.encrypted || s.identity != nil
}

// Unlock derives the key from the password and verifies it against the
// verification file
func (s *Store) Unlock(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}

	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	encrypted, err := os.ReadFile(filepath.Join(s.baseDir, verifyFile))
	if err != nil {
		return fmt.Errorf("failed to read verification file: %w", err)
	}

	decrypted, err := decryptData(encrypted, identity)
	if err != nil || string(decrypted) != verifyMagic {
		return fmt.Errorf("incorrect password")
	}

	s.identity = identity
	s.recipient, _ = age.NewScryptRecipient(password)
	return nil
}

// Lock clears the encryption key from memory
func (s *Store) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = nil
	s.recipient = nil
}

// EnableEncryption turns on at-rest encryption for the directory.
// Files written afterwards are encrypted; existing plaintext files
// remain readable.
func (s *Store) EnableEncryption(password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	verify, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, verifyFile), verify, 0644); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), nil, 0644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// ReadFile reads and, if needed, decrypts a file
func (s *Store) ReadFile(path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if isAgeEncrypted(data) {
		if s.identity == nil {
			return nil, fmt.Errorf("file is encrypted but storage is locked")
		}
		return decryptData(data, s.identity)
	}

	return data, nil
}

// WriteFile writes a file atomically, encrypting when enabled and
// unlocked
func (s *Store) WriteFile(path string, data []byte, perm os.FileMode) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.encrypted && s.recipient != nil && filepath.Base(path) != markerFile && filepath.Base(path) != verifyFile {
		encrypted, err := encryptData(data, s.recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt: %w", err)
		}
		data = encrypted
	}

	return atomicWrite(path, data, perm)
}

// atomicWrite writes via a temp file and rename so readers never see a
// partial document
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// isAgeEncrypted checks for the age encryption header
func isAgeEncrypted(data []byte) bool {
	return len(data) > len(ageHeader) && string(data[:len(ageHeader)]) == ageHeader
}

// Stat returns file info, useful for checking existence
func (s *Store) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Glob returns files matching a pattern under the base directory
func (s *Store) Glob(pattern string) ([]string, error) {
	return filepath.Glob(filepath.Join(s.baseDir, pattern))
}

// Remove removes a file
func (s *Store) Remove(path string) error {
	return os.Remove(path)
}
