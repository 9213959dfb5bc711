package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// CredentialFileName is the single durable key holding the bearer
	// credential. Its absence means logged out.
	CredentialFileName = "credential"

	privateDirPerm  = 0o700
	privateFilePerm = 0o600

	maxCredentialFileSize = 64 * 1024
)

// CredentialFile stores the bearer credential on disk. It is the only
// durable client state; the session store is its single writer.
type CredentialFile struct {
	path string
}

// NewCredentialFile creates a credential file rooted at the data directory.
func NewCredentialFile(dataDir string) (*CredentialFile, error) {
	dir := strings.TrimSpace(dataDir)
	if dir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	return &CredentialFile{path: filepath.Join(dir, CredentialFileName)}, nil
}

// Path returns the on-disk location of the credential.
func (f *CredentialFile) Path() string {
	return f.path
}

// Load reads the persisted credential. A missing file is not an error; it
// returns the empty credential.
func (f *CredentialFile) Load() (string, error) {
	info, err := os.Lstat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat credential file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("credential path %q is not a regular file", f.path)
	}
	if info.Size() > maxCredentialFileSize {
		return "", fmt.Errorf("credential file %q exceeds size limit", f.path)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Store writes the credential atomically with owner-only permissions.
func (f *CredentialFile) Store(credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return fmt.Errorf("refusing to persist an empty credential")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, privateDirPerm); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, CredentialFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpPath := tmpFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := tmpFile.Chmod(privateFilePerm); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if _, err := tmpFile.WriteString(credential + "\n"); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("rename credential file into place: %w", err)
	}
	cleanup = false
	return nil
}

// Remove deletes the persisted credential. Removing an absent credential is
// not an error.
func (f *CredentialFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
