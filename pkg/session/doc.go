/*
Package session manages stored experiment runs.

It wraps a ports.ResultStore with per-run serialization so concurrent
producers (a live run plus inspection tooling) interleave safely, and adds
export of collected records to JSON and CSV for analysis pipelines.
*/
package session
