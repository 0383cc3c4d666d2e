package domain

import (
	"fmt"
	"time"
)

// Version is an immutable, numbered snapshot of a document.
// Numbers for a slug are contiguous from 1 and never rewritten.
type Version struct {
	Slug      string    `json:"slug"`
	Number    int       `json:"number"`
	Document  Document  `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Reason    string    `json:"reason"`

	// Checksum is the hex SHA-256 of the canonical snapshot.
	Checksum string `json:"checksum"`
}

// VersionInfo is version metadata without the snapshot body.
type VersionInfo struct {
	Slug      string    `json:"slug"`
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	Author    string    `json:"author"`
	Reason    string    `json:"reason"`
	Checksum  string    `json:"checksum"`
}

// Info returns the version's metadata.
func (v Version) Info() VersionInfo {
	return VersionInfo{
		Slug:      v.Slug,
		Number:    v.Number,
		CreatedAt: v.CreatedAt,
		Author:    v.Author,
		Reason:    v.Reason,
		Checksum:  v.Checksum,
	}
}

// Verify checks the snapshot against its checksum and its structural
// invariants. Any failure is reported as ErrCorruptRecord.
func (v Version) Verify() error {
	if v.Number < 1 {
		return CorruptError("verify", v.Slug, v.Number, "version number below 1")
	}
	if v.Document.Slug != v.Slug {
		return CorruptError("verify", v.Slug, v.Number,
			fmt.Sprintf("snapshot slug %q does not match record", v.Document.Slug))
	}
	for key, p := range v.Document.Points {
		if key != p.Theme {
			return CorruptError("verify", v.Slug, v.Number,
				fmt.Sprintf("point keyed %q carries theme %q", key, p.Theme))
		}
	}
	sum, err := v.Document.Checksum()
	if err != nil {
		return CorruptError("verify", v.Slug, v.Number, err.Error())
	}
	if sum != v.Checksum {
		return CorruptError("verify", v.Slug, v.Number, "checksum mismatch")
	}
	return nil
}

// Commit is one version transition handed to a store as a single unit.
// ExpectedHead is the version the writer observed; the store must reject
// the commit with ErrVersionConflict if its head has moved.
type Commit struct {
	Version      Version
	Entry        AuditEntry
	ExpectedHead int
}

// DeletionRecord describes the removal of a document's whole history.
type DeletionRecord struct {
	Slug      string    `json:"slug"`
	Versions  int       `json:"versions"`
	Author    string    `json:"author"`
	Reason    string    `json:"reason"`
	DeletedAt time.Time `json:"deleted_at"`
}
