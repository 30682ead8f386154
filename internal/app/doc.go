// Package app assembles the engine: it builds the logger, loads config,
// registers the executor modules, and dispatches the CLI actions.
package app
