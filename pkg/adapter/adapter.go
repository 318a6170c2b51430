// Package adapter provides warehouse adapter interfaces and the shared
// database/sql implementation the concrete adapters embed.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with this package from their init() functions.
package adapter

import "github.com/leapstack-labs/healthdw/pkg/core"

// Type aliases so adapter implementations can refer to the core types
// without importing pkg/core directly.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
