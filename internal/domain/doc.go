// Package domain contains the core model for smol experiment orchestration.
//
// The domain does not depend on YAML parsing, process execution, or the filesystem.
// Infra adapters map into/from these types.
package domain
