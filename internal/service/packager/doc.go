// Package packager drives one packaging run end to end.
//
// Run validates the package specification, loads settings and then executes
// the stages in order inside a private working tree: bytecode acquisition,
// resource compilation, archive assembly, signing and alignment. Every stage
// after validation degrades instead of failing, so a run that gets past
// validation leaves exactly one archive in the output directory. The returned
// Result records which stages ran at full fidelity.
package packager
