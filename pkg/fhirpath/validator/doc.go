// Package validator runs the semantic rule engine that sits between the
// parser and the SQL translator. It consumes a parsed AST plus the flat
// function-call and path-step lists the parser collects alongside it, and
// rejects expressions the translator should never see: choice-type aliases
// accessed directly, unknown built-in names, path elements absent from the
// registry, incompatible temporal comparisons, and a handful of other shape
// violations spelled out rule by rule in validator.go.
//
// Validate runs its ten rules in a fixed order and returns on the first
// violation — it reports one failing rule per call, not an accumulated list.
package validator
