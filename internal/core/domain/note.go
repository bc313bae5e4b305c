package domain

import "time"

// Note represents a vault document tracked by the linking engine.
// It is the cached metadata view of a markdown file, not its content.
type Note struct {
	// ID is the opaque unique identifier, assigned at first discovery
	// and immutable afterwards.
	ID string

	// Path is the vault-relative file path. Unique among live notes.
	Path string

	// Title is the human-readable name, derived from the filename stem.
	Title string

	// ContentHash is the digest of the hashable body region
	// (between front matter and the link marker).
	ContentHash string

	// Tags are the note's current tags from front matter or tagging runs.
	Tags []string

	// CreatedAt is when the note was first discovered.
	CreatedAt time.Time

	// ModifiedAt is the file modification time at last scan.
	ModifiedAt time.Time

	// EmbeddingUpdatedAt is when the note's embedding was last computed.
	// Zero if the note has never been embedded.
	EmbeddingUpdatedAt time.Time
}

// Embedding is a note's vector representation under a specific model.
// One embedding exists per note; it is replaced wholesale on recompute.
type Embedding struct {
	// NoteID links to the Note this vector was computed from.
	NoteID string

	// Vector is the fixed-length embedding.
	Vector []float32

	// Model is the embedding model that produced the vector.
	Model string

	// CreatedAt is when the vector was computed.
	CreatedAt time.Time
}

// VaultFile describes a document found during a vault scan,
// before it is matched against the cache.
type VaultFile struct {
	// Path is the vault-relative file path.
	Path string

	// Title is the filename stem.
	Title string

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time
}
