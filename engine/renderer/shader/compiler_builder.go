package shader

// CompilerBuilderOption is a functional option applied to a Compiler during construction via NewCompiler.
type CompilerBuilderOption func(*nagaCompiler)

// WithInclude registers source that `#include "name"` expands to.
//
// Parameters:
//   - name: the include name
//   - source: the WGSL text inserted in place of the directive
//
// Returns:
//   - CompilerBuilderOption: a function that registers the include on the compiler
func WithInclude(name, source string) CompilerBuilderOption {
	return func(c *nagaCompiler) {
		c.pp.RegisterInclude(name, source)
	}
}

// WithIncludes registers every entry of includes.
//
// Parameters:
//   - includes: include names mapped to WGSL text
//
// Returns:
//   - CompilerBuilderOption: a function that registers the includes on the compiler
func WithIncludes(includes map[string]string) CompilerBuilderOption {
	return func(c *nagaCompiler) {
		for name, src := range includes {
			c.pp.RegisterInclude(name, src)
		}
	}
}

// WithDebugInfo emits OpName/OpLine debug instructions in the generated SPIR-V.
//
// Parameters:
//   - enabled: true to emit debug info
//
// Returns:
//   - CompilerBuilderOption: a function that applies the debug option to the compiler
func WithDebugInfo(enabled bool) CompilerBuilderOption {
	return func(c *nagaCompiler) {
		c.options.Debug = enabled
	}
}

// WithValidation toggles IR validation before code generation. Enabled by default.
//
// Parameters:
//   - enabled: false to skip validation
//
// Returns:
//   - CompilerBuilderOption: a function that applies the validation option to the compiler
func WithValidation(enabled bool) CompilerBuilderOption {
	return func(c *nagaCompiler) {
		c.options.Validate = enabled
	}
}

// WithSPIRVVersion selects the SPIR-V version ("1.0", "1.3" … "1.6"). Unknown versions are ignored.
//
// Parameters:
//   - version: the version string
//
// Returns:
//   - CompilerBuilderOption: a function that applies the target version to the compiler
func WithSPIRVVersion(version string) CompilerBuilderOption {
	return func(c *nagaCompiler) {
		if v, ok := spirvVersions[version]; ok {
			c.options.SPIRVVersion = v
		}
	}
}
