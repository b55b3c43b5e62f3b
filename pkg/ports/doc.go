/*
Package ports defines the interfaces between the Quadrat engine core and its
host adapters, following Hexagonal Architecture principles.

The engine drives control top-down and owns all run state; adapters plug in
at two seams: presenting trials to the participant (TrialRunner) and
persisting finalized observations (ResultStore).
*/
package ports
