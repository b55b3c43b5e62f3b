// Package runner hosts the participant-facing presenters and the session
// loop that binds them to an experiment. Presenters implement
// ports.TrialRunner: they receive resolved trial parameters, collect the
// participant's response, and report it through the completion signal.
package runner
