// Package engine hands decoded modules to the wazero runtime.
//
// The decoder only validates the binary format. Executing a module is the
// job of an engine: WazeroEngine builds a wazero runtime whose core feature
// flags come from the feature set the module was decoded with, so both
// sides agree on which proposals are allowed.
//
//	WazeroEngine - owns the wazero runtime
//	WazeroModule - a compiled module, can create instances
//
// Errors from wazero are wrapped in *errors.Error with the load phase.
package engine
