package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	addressRegex    = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	roundIndexRegex = regexp.MustCompile(`^[0-9]+$`)
)

// IsAddressValid reports whether address is 0x followed by 40 hex characters
func IsAddressValid(address string) bool {
	return addressRegex.MatchString(address)
}

// NormalizeAddress validates an address and lower-cases it so that
// differently cased spellings map to the same record.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !IsAddressValid(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return strings.ToLower(address), nil
}

// KeyKind tells which allocation shape a ScheduleKey refers to.
type KeyKind int

const (
	RoundKey KeyKind = iota
	InvestorKey
)

func (k KeyKind) String() string {
	switch k {
	case RoundKey:
		return "round"
	case InvestorKey:
		return "investor"
	}
	return "unknown"
}

// ScheduleKey identifies a fixed round by index or a private investor by address.
type ScheduleKey struct {
	Kind    KeyKind
	Round   int
	Address string
}

func RoundScheduleKey(index int) ScheduleKey {
	return ScheduleKey{Kind: RoundKey, Round: index}
}

func InvestorScheduleKey(address string) ScheduleKey {
	return ScheduleKey{Kind: InvestorKey, Address: strings.ToLower(address)}
}

// ParseScheduleKey reads all-digit strings as round indexes and anything
// shaped like an address as an investor key.
func ParseScheduleKey(s string) (ScheduleKey, error) {
	s = strings.TrimSpace(s)
	if roundIndexRegex.MatchString(s) {
		index, err := strconv.Atoi(s)
		if err != nil {
			return ScheduleKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return RoundScheduleKey(index), nil
	}

	address, err := NormalizeAddress(s)
	if err != nil {
		return ScheduleKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return InvestorScheduleKey(address), nil
}

func (k ScheduleKey) String() string {
	if k.Kind == RoundKey {
		return strconv.Itoa(k.Round)
	}
	return k.Address
}
