package driven

import (
	"context"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
)

// Vault is the host document store: a directory of markdown notes.
// The engine only reads and writes whole documents through it; all
// marker and front-matter handling is domain logic.
type Vault interface {
	// Scan enumerates markdown files under the vault root, honouring
	// the configured excluded folders and patterns.
	Scan(ctx context.Context) ([]domain.VaultFile, error)

	// Read returns a note's full text by vault-relative path.
	Read(ctx context.Context, path string) (string, error)

	// Write replaces a note's full text by vault-relative path.
	Write(ctx context.Context, path string, content string) error
}
