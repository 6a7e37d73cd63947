package pipeline

// Config is the coordinator's complete configuration, populated once at
// construction. Environment overrides are resolved by the caller; nothing
// in this package reads the process environment, which keeps pipeline
// construction deterministic under test.
type Config struct {
	// ToolDir is the directory holding the driver-bundled tools
	// (llvm-link, opt, llc, lld, llvm-nm, clang-fixup-fatbin). Empty
	// means bare tool names resolved through PATH.
	ToolDir string

	// AssemblerPath and PackagerPath override the SDK-provided ptxas and
	// fatbinary executables.
	AssemblerPath string
	PackagerPath  string

	// GCNRoot is the resolved alternate-family library root.
	GCNRoot string

	// LibraryPaths are explicit -L search directories for device bitcode
	// libraries, highest priority first.
	LibraryPaths []string

	// LinkFlags are extra flags appended verbatim to the merge stage.
	LinkFlags []string

	// OptFlags replace the default optimization-stage flags when set.
	OptFlags []string

	// LowerFlags are extra flags for the codegen (lower) stage.
	LowerFlags []string

	// AssemblerFlags and PackagerFlags pass through unmodified to the
	// assemble and packaging stages.
	AssemblerFlags []string
	PackagerFlags  []string

	// OptLevel is the host optimization level ("" when the host passed
	// no -O flag); it is remapped to the device assembler's scale.
	OptLevel string

	// DeviceDebug requests device debug info, which overrides
	// optimization entirely in the assemble stage.
	DeviceDebug bool

	// Verbose adds diagnostic stages (symbol dumps) and command echo.
	Verbose bool

	// NoVersionCheck suppresses the SDK version-compatibility gate.
	NoVersionCheck bool

	// Host64Bit selects the 64-bit word-size flags.
	Host64Bit bool
}
