// Package retention keeps the attempt ledger bounded. A Pruner removes
// records by age and by count, optionally archiving them to dated JSON
// files first; a Scheduler runs it on a cron expression. Pruning trims the
// oldest end of the hash chain, so later verification anchors at the oldest
// retained record.
package retention
