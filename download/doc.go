/*
Package download runs download requests against a reconstructed forest.

A request names a scope, either one folder (by content path) or the whole
site. The Orchestrator resolves the scope to a file list, hands the list to
an archive assembler and delivers the resulting zip to a Sink under the
requested filename.

Outcomes are reported through sentinel errors (ErrFolderNotFound, ErrNoFiles,
archive.ErrAssembly) and, when a Tracker is attached, through a per-scope
status that falls back to idle shortly after a run ends.
*/
package download
