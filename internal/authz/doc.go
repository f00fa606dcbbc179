// Package authz implements the engine's access control model: a closed set
// of roles, a typed permission matrix, the case-scoped access predicate, and
// the approval-tier helpers backing the legal gate.
//
// Core concepts:
//
//   - Actor: the resolved (user, role, tenant) identity attached to every
//     engine operation. How the triple is authenticated is out of scope.
//
//   - Permission matrix: a single canonical fine-grained matrix. The legacy
//     resource/action API is a translation layer over it, never a second
//     source of truth.
//
//   - Case access: globally privileged roles bypass per-case scoping (the
//     auditor role only for reads); scoped roles need assignment or team
//     membership, tracked per tenant in a TeamStore.
//
// Every run- or gate-mutating operation must pass EnforceCasePermission
// before touching state.
package authz
