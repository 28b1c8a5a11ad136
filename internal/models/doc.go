// Package models defines domain entities shared across the podtempo pipeline.
//
// The package contains three categories of types:
//
//  1. Parse output: [PlaylistEntry], the immutable unit of work produced by
//     the playlist parser.
//  2. Processing output: [ProcessingResult], what one successful
//     download → transform → upload run yields.
//  3. Lifecycle tracking: [Job] and [JobStatus], the unit of work over one
//     playlist, owned exclusively by the orchestrator until terminal.
//
// Jobs are held in memory for the lifetime of the process; there is no
// durable job history.
package models
