// Package registry exposes the FHIR type lookup the compiler treats as an
// external collaborator: canonical name resolution, element typing, the
// array bit, and value[x] choice-type expansion. DefaultRegistry backs this
// with a small embedded fixture rather than a full StructureDefinition
// loader, which remains out of scope for this subsystem.
package registry
