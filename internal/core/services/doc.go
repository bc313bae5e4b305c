// Package services implements the driving port interfaces.
// Services contain the core linking logic: run orchestration,
// candidate generation, batched scoring, failure journaling and
// ledger-based link reconciliation. They orchestrate calls to driven
// ports (cache, vault, model gateway) and never touch a vendor API or
// SQL directly.
package services
