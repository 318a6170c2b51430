// Package core defines the shared language of the healthdw system.
//
// This package contains:
//   - Warehouse contracts (Adapter, AdapterConfig, DialectConfig)
//   - Run ledger entities (Run, RunStep, RunStatus)
//   - Configuration types shared by the CLI and the adapters (TargetConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
