package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// OperationKind identifies the kind of mutation an audit entry records.
type OperationKind string

// Operation kinds.
const (
	// OpCreate is the first version of a document.
	OpCreate OperationKind = "create"

	// OpUpdate is any later version.
	OpUpdate OperationKind = "update"
)

// AuditEntry is an immutable record of one accepted version transition.
// Entries for a slug form a hash chain: each PrevHash is the Hash of the
// entry before it, empty for the first.
type AuditEntry struct {
	ID        string            `json:"id"`
	Slug      string            `json:"slug"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      OperationKind     `json:"kind"`
	Author    string            `json:"author"`
	Reason    string            `json:"reason"`
	Before    *int              `json:"before"`
	After     int               `json:"after"`
	Changes   []Change          `json:"changes"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	PrevHash  string            `json:"prev_hash"`
	Hash      string            `json:"hash"`
}

// hashedEntry is the canonical form the hash is computed over.
type hashedEntry struct {
	ID        string            `json:"id"`
	Slug      string            `json:"slug"`
	Timestamp int64             `json:"timestamp"`
	Kind      OperationKind     `json:"kind"`
	Author    string            `json:"author"`
	Reason    string            `json:"reason"`
	Before    *int              `json:"before"`
	After     int               `json:"after"`
	Changes   []Change          `json:"changes"`
	Metadata  map[string]string `json:"metadata"`
	PrevHash  string            `json:"prev_hash"`
}

// ComputeHash returns the hex SHA-256 over every field except Hash.
func (e AuditEntry) ComputeHash() (string, error) {
	changes := e.Changes
	if changes == nil {
		changes = []Change{}
	}
	data, err := json.Marshal(hashedEntry{
		ID:        e.ID,
		Slug:      e.Slug,
		Timestamp: e.Timestamp.UnixNano(),
		Kind:      e.Kind,
		Author:    e.Author,
		Reason:    e.Reason,
		Before:    e.Before,
		After:     e.After,
		Changes:   changes,
		Metadata:  e.Metadata,
		PrevHash:  e.PrevHash,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Seal links the entry to its predecessor and sets its hash.
func (e *AuditEntry) Seal(prevHash string) error {
	e.PrevHash = prevHash
	h, err := e.ComputeHash()
	if err != nil {
		return err
	}
	e.Hash = h
	return nil
}

// BeforeVersion returns the before reference, zero for a creation.
func (e AuditEntry) BeforeVersion() int {
	if e.Before == nil {
		return 0
	}
	return *e.Before
}

// VerifyLedger checks a complete, oldest-first ledger for one slug:
// contiguous transitions starting at version 1, a null before-reference
// only on the first entry, and an unbroken hash chain.
func VerifyLedger(slug string, entries []AuditEntry) error {
	prevHash := ""
	for i, e := range entries {
		want := i + 1
		if e.Slug != slug {
			return CorruptError("verify ledger", slug, want, fmt.Sprintf("entry belongs to %q", e.Slug))
		}
		if e.After != want {
			return CorruptError("verify ledger", slug, want, fmt.Sprintf("entry %d records after=%d", i, e.After))
		}
		if i == 0 && e.Before != nil {
			return CorruptError("verify ledger", slug, want, "first entry has a before reference")
		}
		if i > 0 && (e.Before == nil || *e.Before != want-1) {
			return CorruptError("verify ledger", slug, want, "before reference is not the previous version")
		}
		if e.PrevHash != prevHash {
			return CorruptError("verify ledger", slug, want, "hash chain broken")
		}
		h, err := e.ComputeHash()
		if err != nil {
			return CorruptError("verify ledger", slug, want, err.Error())
		}
		if h != e.Hash {
			return CorruptError("verify ledger", slug, want, "entry hash mismatch")
		}
		prevHash = e.Hash
	}
	return nil
}
