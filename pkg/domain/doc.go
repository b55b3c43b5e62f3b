/*
Package domain contains the core domain models for the Quadrat engine.

It defines the declarative timeline structures (Description, Parameter,
VariableSet), the runtime records (Result, Collection), the variable scope
stack, and the error taxonomy. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Description: A declarative, arbitrarily nested specification of trials
    and sub-timelines, with iteration, sampling, looping and gating metadata.
  - Parameter: A tagged value (literal, deferred function, or variable
    reference) resolved at the moment a trial is handed to its presenter.
  - Scope: The stack of timeline-variable bindings; inner bindings shadow
    outer ones.
  - Result: A single trial's observation record, frozen once finalized.
  - Collection: The append-only ordered history of finalized results.
*/
package domain
