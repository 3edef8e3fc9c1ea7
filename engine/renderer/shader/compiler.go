package shader

import (
	"fmt"
	"regexp"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/spirv"
)

// Compiled is the output of a Compiler.
type Compiled struct {
	// Source is the pre-processed WGSL handed to the device.
	Source string

	// Bytecode is the SPIR-V module generated from Source.
	Bytecode []byte
}

// Compiler turns WGSL source text, a stage and macro defines into bytecode.
type Compiler interface {
	// Compile pre-processes and compiles source.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//   - stage: the stage the source must provide an entry point for
	//   - defines: macro defines applied by the pre-processor
	//
	// Returns:
	//   - *Compiled: the processed source and bytecode
	//   - error: a pre-processor, parse, validation or stage error
	Compile(source string, stage ShaderType, defines map[string]string) (*Compiled, error)
}

// nagaCompiler is the Compiler implementation backed by the pure Go naga toolchain.
type nagaCompiler struct {
	pp      PreProcessor
	options naga.CompileOptions
}

var _ Compiler = &nagaCompiler{}

// NewCompiler creates a naga backed Compiler. By default it validates the IR and targets
// SPIR-V 1.3 without debug info.
//
// Parameters:
//   - options: functional options for the compiler
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(options ...CompilerBuilderOption) Compiler {
	c := &nagaCompiler{
		pp:      NewPreProcessor(),
		options: naga.DefaultOptions(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *nagaCompiler) Compile(source string, stage ShaderType, defines map[string]string) (*Compiled, error) {
	processed, err := c.pp.Process(source, defines)
	if err != nil {
		return nil, fmt.Errorf("pre-process: %w", err)
	}
	if len(EntryPoints(processed, stage)) == 0 {
		return nil, fmt.Errorf("source has no @%s entry point", stage)
	}

	bytecode, err := naga.CompileWithOptions(processed, c.options)
	if err != nil {
		return nil, err
	}
	return &Compiled{Source: processed, Bytecode: bytecode}, nil
}

var entryPointPattern = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{;]*?\bfn\s+([A-Za-z_][A-Za-z0-9_]*)`)

// EntryPoints lists the functions declared for stage, in source order.
//
// Parameters:
//   - source: WGSL source without pre-processor directives
//   - stage: the stage to look for
//
// Returns:
//   - []string: the entry point names
func EntryPoints(source string, stage ShaderType) []string {
	var names []string
	for _, m := range entryPointPattern.FindAllStringSubmatch(source, -1) {
		if m[1] == stage.String() {
			names = append(names, m[2])
		}
	}
	return names
}

// spirvVersions maps the versions accepted by WithSPIRVVersion.
var spirvVersions = map[string]spirv.Version{
	"1.0": spirv.Version1_0,
	"1.3": spirv.Version1_3,
	"1.4": spirv.Version1_4,
	"1.5": spirv.Version1_5,
	"1.6": spirv.Version1_6,
}
