package apk

// Provenance records which bytecode strategy produced an artifact.
type Provenance string

// Known provenances, from highest to lowest fidelity.
const (
	ProvenanceCompiled        Provenance = "compiled"
	ProvenanceAssembled       Provenance = "assembled"
	ProvenanceExternallyBuilt Provenance = "externally-built"
	ProvenancePlaceholder     Provenance = "placeholder"
)

// Functional reports whether artifacts of this provenance carry a working entry point.
func (p Provenance) Functional() bool {
	return p == ProvenanceCompiled || p == ProvenanceAssembled
}

// BytecodeArtifact is a bytecode file plus the strategy that produced it.
type BytecodeArtifact struct {
	Path       string
	Provenance Provenance
}

// Result describes the artifact produced by a run.
type Result struct {
	// ArtifactPath is the final archive location.
	ArtifactPath string `yaml:"artifact"`
	// Size is the final archive size in bytes.
	Size int64 `yaml:"size"`
	// Bytecode is the provenance of the embedded bytecode container.
	Bytecode Provenance `yaml:"bytecode"`
	// ResourcesCompiled is false when the raw manifest text was embedded instead.
	ResourcesCompiled bool `yaml:"resources_compiled"`
	// Signed is false when the signer was unavailable or failed.
	Signed bool `yaml:"signed"`
	// Aligned is false when the archive is an unaligned copy.
	Aligned bool `yaml:"aligned"`
}

// Degraded reports whether any stage fell back to a lower-fidelity strategy.
func (r *Result) Degraded() bool {
	return !r.Bytecode.Functional() || !r.ResourcesCompiled || !r.Signed || !r.Aligned
}
