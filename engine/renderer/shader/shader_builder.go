package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint selects the entry point when a source declares several functions for the
// same stage. Without it the first one in source order is used.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point for this shader
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithDefine adds one macro define visible to #ifdef, #ifndef and identifier substitution.
//
// Parameters:
//   - name: the macro name
//   - value: the replacement text, empty for a flag
//
// Returns:
//   - ShaderBuilderOption: a function that adds the define to this shader
func WithDefine(name, value string) ShaderBuilderOption {
	return func(s *shader) {
		s.defines[name] = value
	}
}

// WithDefines adds every entry of defines.
//
// Parameters:
//   - defines: macro names mapped to replacement text
//
// Returns:
//   - ShaderBuilderOption: a function that adds the defines to this shader
func WithDefines(defines map[string]string) ShaderBuilderOption {
	return func(s *shader) {
		for k, v := range defines {
			s.defines[k] = v
		}
	}
}

// WithCompiler sets the compiler used for this shader. Defaults to NewCompiler().
//
// Parameters:
//   - c: the compiler
//
// Returns:
//   - ShaderBuilderOption: a function that sets the compiler for this shader
func WithCompiler(c Compiler) ShaderBuilderOption {
	return func(s *shader) {
		s.compiler = c
	}
}

func withPath(path string) ShaderBuilderOption {
	return func(s *shader) {
		s.path = path
	}
}
