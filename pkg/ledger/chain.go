package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ChainHash computes the tamper-evidence hash for a record given the hash of
// the record before it. Every business field participates; ChainHash itself
// and the storage-assigned Seq do not. Fields are length-prefixed so a value
// containing the separator cannot forge a different field split.
func ChainHash(prevHash string, record *AttemptRecord) string {
	fields := []string{
		prevHash,
		record.ID,
		record.RequestID,
		record.PoolName,
		record.KeyID,
		record.RequestHash,
		strconv.Itoa(record.Attempts),
		strconv.Itoa(record.StatusCode),
		record.Outcome,
		record.Error,
		record.ErrorKind,
		strconv.FormatInt(record.BytesUploaded, 10),
		strconv.FormatInt(int64(record.TotalDelay), 10),
		strconv.FormatInt(record.StartedAt.UTC().UnixNano(), 10),
		strconv.FormatInt(record.CompletedAt.UTC().UnixNano(), 10),
		strconv.FormatInt(record.RecordedAt.UTC().UnixNano(), 10),
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
