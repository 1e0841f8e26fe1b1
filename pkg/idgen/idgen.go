package idgen

import (
	"strings"

	"github.com/google/uuid"
)

const (
	prescriptionPrefix = "RX-"
	orderPrefix        = "ORD-"
	transactionPrefix  = "TXN-"
)

func Prescription() string { return prescriptionPrefix + hexUpper(8) }

func Order() string { return orderPrefix + hexUpper(8) }

func Transaction() string { return transactionPrefix + hexUpper(10) }

// hexUpper returns the first n hex digits of a random UUID, uppercased.
// n must not exceed 12 so the version nibble is never included.
func hexUpper(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:n])
}
