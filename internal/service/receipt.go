package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	receiptPrefix      = "RCP"
	receiptAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	receiptSuffixLen   = 6
	maxReceiptAttempts = 5
)

// receiptNumberFunc issues a receipt number for a transaction recorded at the given time.
type receiptNumberFunc func(at time.Time) (string, error)

// newReceiptNumber formats RCP-YYYYMMDD-XXXXXX with a random uppercase alphanumeric suffix.
func newReceiptNumber(at time.Time) (string, error) {
	suffix := make([]byte, receiptSuffixLen)
	max := big.NewInt(int64(len(receiptAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate receipt suffix: %w", err)
		}
		suffix[i] = receiptAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%s-%s", receiptPrefix, at.UTC().Format("20060102"), suffix), nil
}
