// Package preflight provides readiness checks for external services
// and filesystem paths that deep-vision depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs every failing check so a
//     misconfigured install is visible before tasks start failing.
//   - The CLI "deepvision status" command uses individual check functions
//     to display service health.
//
// Each network check is gated by its config section -- unconfigured
// subsystems are skipped.
package preflight
