// Package preflight provides readiness checks for the filesystem paths and
// external tools batchscribe depends on.
//
// These checks run in two contexts:
//   - The run driver calls RunAll before loading the model. A failed
//     required check aborts the run so no partial transcript is written.
//   - The CLI "deps" command uses CheckSystemDeps to display tool status.
//
// Checks flagged as warnings (low free space, a missing optional tool) are
// reported but never stop a run.
package preflight
