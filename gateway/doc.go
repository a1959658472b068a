// Package gateway contains the store-agnostic core shared by every external
// store adapter in this module: the exponential backoff policy, the retry
// loop with its failure taxonomy, and the uniform result envelope.
//
// Adapters (jirastore, dynstore) classify every raw failure into exactly one
// taxonomy kind before it crosses the package boundary, so callers only ever
// observe typed errors or envelopes, never SDK-specific faults.
package gateway
