package index

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// MarshalDeterministic serializes an artifact for persistence.
//
// encoding/json already gives us what determinism requires: struct fields in
// declaration order and map keys (UUIDs) in sorted order, so the serialized
// index is sorted by UUID without an explicit sort. HTML escaping is
// disabled so titles containing <, > or & round-trip byte-identically.
func MarshalDeterministic(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteLinkFile atomically persists the link file.
//
// The write path is: serialize in memory, take an advisory lock, write a
// temp file in the target directory, rename over the destination. A failure
// at any step leaves the previous on-disk file intact - there is no code
// path that truncates or partially writes the destination.
//
// Returns written=false when the destination already holds exactly these
// bytes, skipping the redundant write (and keeping the file's mtime useful
// as a "last real change" signal).
func WriteLinkFile(path string, lf *LinkFile) (written bool, err error) {
	return writeArtifact(path, lf, "write link file")
}

// WriteObsIndex atomically persists the Obsidian task index with the same
// lock, compare and rename path as the link file.
func WriteObsIndex(path string, ix *ObsIndex) (written bool, err error) {
	return writeArtifact(path, ix, "write obsidian index")
}

// WriteRemIndex atomically persists the Reminders task index.
func WriteRemIndex(path string, ix *RemIndex) (written bool, err error) {
	return writeArtifact(path, ix, "write reminders index")
}

func writeArtifact(path string, v any, op string) (written bool, err error) {
	data, err := MarshalDeterministic(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	release, err := lockPath(path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer release()

	if prev, err := os.ReadFile(path); err == nil && bytes.Equal(prev, data) {
		return false, nil
	}

	if err := atomicWrite(path, data); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// atomicWrite writes data to a temp file in path's directory and renames it
// into place. Rename within one filesystem is atomic, so readers see either
// the old file or the new one, never a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// lockPath takes a non-blocking advisory lock on path's lock file. Callers
// are responsible for not running two passes concurrently; the lock turns a
// violation into a fast, clean failure instead of an interleaved write.
func lockPath(path string) (release func(), err error) {
	lockName := path + ".lock"
	f, err := os.OpenFile(lockName, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("link file is locked by another process: %w", err)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}, nil
}
