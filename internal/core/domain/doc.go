// Package domain defines the core business entities for relink.
//
// This package is part of the hexagonal architecture's innermost layer
// and defines the fundamental types:
//
//   - Note: a vault markdown file tracked by the engine
//   - Embedding: a note's vector representation
//   - PairKey / PairScore: canonical pair identity and its scores
//   - LinkEntry: a ledger record of an engine-inserted link
//   - FailureRecord: an unresolved batch failure awaiting retry
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend
// on domain, never the reverse. Its only external dependency is the
// YAML codec used for note front matter.
package domain
