// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the linking engine to function:
//
//   - CacheStore: the persistent content-addressed cache (SQLite)
//   - Vault: the markdown document store on disk
//   - ModelGateway: the remote embedding/scoring/tagging boundary
//   - ConfigStore: application configuration
//
// # Optional Interfaces
//
//   - PromptStore: user-customisable prompt templates. When nil,
//     adapters fall back to built-in defaults.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: any adapter package
package driven
