package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ReadObsIndex loads and validates the Obsidian task index. A missing or
// malformed file is a hard failure; matching never starts on partial input.
func ReadObsIndex(path string) (*ObsIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read obsidian index: %w", err)
	}
	var ix ObsIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := ix.Validate(path); err != nil {
		return nil, err
	}
	return &ix, nil
}

// ReadRemIndex loads and validates the Reminders task index.
func ReadRemIndex(path string) (*RemIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reminders index: %w", err)
	}
	var ix RemIndex
	if err := json.Unmarshal(data, &ix); err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := ix.Validate(path); err != nil {
		return nil, err
	}
	return &ix, nil
}

// ReadLinkFile loads and validates the link file. A missing file is not an
// error - first runs start from an empty link set - but a malformed one is.
func ReadLinkFile(path string) (*LinkFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &LinkFile{Meta: LinkMeta{Schema: SchemaVersion}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read link file: %w", err)
	}
	var lf LinkFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	if err := lf.Validate(path); err != nil {
		return nil, err
	}
	return &lf, nil
}
