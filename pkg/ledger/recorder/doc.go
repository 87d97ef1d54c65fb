// Package recorder feeds the attempt ledger without slowing dispatch.
// Record accepts a completed Attempt, redacts the credential to its sha256
// short id, classifies the failure, and hands the record to a buffered
// worker that chains and appends it. Close drains the buffer; the chain
// head survives restarts by seeding from the last persisted record.
package recorder
