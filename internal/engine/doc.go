// Package engine implements the scan → select → dispatch pipeline for one
// upload run.
//
// A run is single-threaded and run-to-completion: the scanner walks the
// watched tree, the selector orders the candidates and bounds the batch,
// and the dispatcher hands each file to the uploader in turn, recording
// every outcome in the ledger before moving on. Repeated scheduling is the
// caller's job.
//
// Known limitation: skip-last-N drops the N newest candidates on every run
// to avoid racing a producer that is still writing. A file that stays the
// newest in a directory that then goes idle is therefore never selected
// until something newer appears.
package engine
