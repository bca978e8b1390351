package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// OrderNumberPrefix is the literal every human-facing order number starts with.
	OrderNumberPrefix = "orden-"
	// OrderNumberCycle is the size of the cosmetic numbering window. After this many orders
	// the suffix starts over; uniqueness is carried by the sequence, not by the number.
	OrderNumberCycle = 100000
)

var ErrInvalidOrderNumber = errors.New("order number is invalid")

// FormatOrderNumber turns a raw sequence value into the customer-facing order code.
func FormatOrderNumber(seq int64) string {
	n := (seq-1)%OrderNumberCycle + 1
	return fmt.Sprintf("%s%05d", OrderNumberPrefix, n)
}

// ParseOrderNumber validates a customer-facing order code and returns its numeric suffix.
func ParseOrderNumber(number string) (int64, error) {
	number = strings.ToLower(strings.TrimSpace(number))
	digits, ok := strings.CutPrefix(number, OrderNumberPrefix)
	if !ok || len(digits) < 5 {
		return 0, ErrInvalidOrderNumber
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 1 || n > OrderNumberCycle {
		return 0, ErrInvalidOrderNumber
	}
	return n, nil
}
