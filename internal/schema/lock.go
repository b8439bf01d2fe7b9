package schema

import validation "github.com/go-ozzo/ozzo-validation/v4"

// BlocksLockFile is blocks.lock.json, the ledger of block versions in use.
type BlocksLockFile struct {
	Internal  []LockEntry `json:"internal"`
	Workspace []LockEntry `json:"workspace"`
}

// LockEntry pins one block to a version and content hash.
type LockEntry struct {
	BlockID string `json:"blockId"`
	Version string `json:"version"`
	Hash    string `json:"hash"`
}

// Validate validates a lock entry.
func (e LockEntry) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.BlockID, validation.Required),
		validation.Field(&e.Version, validation.Required),
		validation.Field(&e.Hash, validation.Required),
	)
}

// ApplyDefaults fills both lists when absent.
func (l *BlocksLockFile) ApplyDefaults() {
	if l.Internal == nil {
		l.Internal = []LockEntry{}
	}
	if l.Workspace == nil {
		l.Workspace = []LockEntry{}
	}
}

// Validate validates the lock document.
func (l *BlocksLockFile) Validate() error {
	return validation.ValidateStruct(l,
		validation.Field(&l.Internal),
		validation.Field(&l.Workspace),
	)
}
