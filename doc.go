// Package wasmbinfmt decodes WebAssembly binary modules.
//
// The decoder is built around a statically composed feature registry:
// every proposal is a declarative feature that contributes section
// handlers, value types, constant opcodes and segment modes, and the
// registry guarantees exactly one handler per section id.
//
// # Architecture Overview
//
//	wasmbinfmt/          Root package with Parse helpers
//	├── errors/          Structured error types with offsets and context
//	├── wasm/            Module model, feature registry, section decoders
//	│   ├── proposal/    One package per proposal feature
//	│   ├── features/    Pre-composed feature sets
//	│   ├── constexpr/   Deferred initializer expression evaluation
//	│   └── wasmtest/    Binary builders for tests
//	├── engine/          Hand-off of decoded modules to wazero
//	└── cmd/wasmdump/    Command line inspector
//
// # Quick Start
//
//	m, err := wasmbinfmt.Parse(data)
//	if err != nil {
//	    var perr *errors.Error
//	    if stderrors.As(err, &perr) {
//	        fmt.Println(perr.Code, perr.Position)
//	    }
//	    return err
//	}
//	for _, g := range m.Globals.Entries {
//	    fmt.Println(g.Type.ValType, m.Bytes(g.Init))
//	}
//
// Custom feature sets are composed with wasm.Compose and used through
// wasm.NewDecoder.
package wasmbinfmt
