package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized       = errors.New("Unauthorized")
	ErrZeroAmount         = errors.New("ZeroAmount")
	ErrCapExceeded        = errors.New("CapExceeded")
	ErrAlreadyStarted     = errors.New("AlreadyStarted")
	ErrScheduleNotStarted = errors.New("ScheduleNotStarted")
	ErrNotFound           = errors.New("NotFound")
	ErrTransferFailed     = errors.New("TransferFailed")

	// A second allocation for the same address is refused as a per-investor cap violation.
	ErrBeneficiaryExists = fmt.Errorf("%w: beneficiary already has a private allocation", ErrCapExceeded)

	ErrInvalidAddress      = errors.New("InvalidAddress")
	ErrInvalidAmount       = errors.New("InvalidAmount")
	ErrInvalidKey          = errors.New("InvalidScheduleKey")
	ErrInvalidSchedule     = errors.New("InvalidSchedule")
	ErrSupplyExceeded      = errors.New("SupplyExceeded")
	ErrNotBootstrapped     = errors.New("NotBootstrapped")
	ErrAlreadyBootstrapped = errors.New("AlreadyBootstrapped")
	ErrGenesisMismatch     = errors.New("GenesisMismatch")
)
