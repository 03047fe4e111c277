package ledger

import (
	"github.com/pkg/errors"
)

// Kind classifies ledger errors so callers can react to a whole family of failures.
type Kind int

const (
	KindUnknown Kind = iota
	// KindEligibility is returned when a principal holds no membership weight.
	KindEligibility
	// KindState is returned when an operation is invalid in the current phase or state.
	KindState
	// KindAuthorization is returned when the caller is not allowed to perform the operation.
	KindAuthorization
	// KindInput is returned for malformed or inconsistent arguments.
	KindInput
	// KindInsufficientFunds is returned when a value requirement is not met.
	KindInsufficientFunds
	// KindExternalCall is returned when an inner call or an outbound transfer failed.
	KindExternalCall
)

func (k Kind) String() string {
	switch k {
	case KindEligibility:
		return "EligibilityError"
	case KindState:
		return "StateError"
	case KindAuthorization:
		return "AuthorizationError"
	case KindInput:
		return "InputError"
	case KindInsufficientFunds:
		return "InsufficientFundsError"
	case KindExternalCall:
		return "ExternalCallFailure"
	default:
		return "UnknownError"
	}
}

// Error is a classified ledger error with a stable code.
type Error struct {
	kind    Kind
	code    string
	message string
}

func (e *Error) Error() string {
	return e.message
}

// Kind returns the taxonomy kind of the error.
func (e *Error) Kind() Kind {
	return e.kind
}

// Code returns the stable code of the error, e.g. "AlreadyVoted".
func (e *Error) Code() string {
	return e.code
}

var errorsByCode = make(map[string]*Error)

// ErrLedgerClosed is returned for transactions submitted after Close.
var ErrLedgerClosed = errors.New("ledger is closed")

func newError(kind Kind, code string, message string) *Error {
	e := &Error{kind: kind, code: code, message: message}
	errorsByCode[code] = e
	return e
}

var (
	ErrNotEligible = newError(KindEligibility, "NotEligible", "principal holds no membership weight")

	ErrWrongPhase            = newError(KindState, "WrongPhase", "operation not allowed in the current phase")
	ErrWrongState            = newError(KindState, "WrongState", "operation not allowed in the current proposal state")
	ErrAlreadyVoted          = newError(KindState, "AlreadyVoted", "principal already voted")
	ErrAlreadySponsored      = newError(KindState, "AlreadySponsored", "principal already sponsored the candidate")
	ErrAlreadyPromoted       = newError(KindState, "AlreadyPromoted", "candidate already promoted")
	ErrNothingToDo           = newError(KindState, "NothingToDo", "no transition is due")
	ErrAlreadySettled        = newError(KindState, "AlreadySettled", "auction already settled")
	ErrEmptySlot             = newError(KindState, "EmptySlot", "slot has no content")
	ErrSlotTaken             = newError(KindState, "SlotTaken", "slot already holds content")
	ErrNoContent             = newError(KindState, "NoContent", "no slot holds content")
	ErrAuctionStillOpen      = newError(KindState, "AuctionStillOpen", "auction is not settled yet")
	ErrAuctionNotActive      = newError(KindState, "AuctionNotActive", "no auction is active")
	ErrUpkeepNotNeeded       = newError(KindState, "UpkeepNotNeeded", "auction has not ended yet")
	ErrProposalAlreadyActive = newError(KindState, "ProposalAlreadyActive", "proposer already has a live proposal")
	ErrNotPromoted           = newError(KindState, "NotPromoted", "candidate is not promoted")
	ErrReentrantCall         = newError(KindState, "ReentrantCall", "reentrant call")
	ErrNothingToClaim        = newError(KindState, "NothingToClaim", "nothing to claim")

	ErrNotAuthorized    = newError(KindAuthorization, "NotAuthorized", "caller is not authorized")
	ErrInvalidGovernor  = newError(KindAuthorization, "InvalidGovernor", "invalid governor address")
	ErrInvalidSignature = newError(KindAuthorization, "InvalidSignature", "invalid transaction signature")

	ErrEmptyDescription = newError(KindInput, "EmptyDescription", "description must not be empty")
	ErrWrongFee         = newError(KindInput, "WrongFee", "value does not match the required fee")
	ErrLengthMismatch   = newError(KindInput, "LengthMismatch", "argument lengths differ")
	ErrInvalidAddress   = newError(KindInput, "InvalidAddress", "invalid address")
	ErrInvalidSlot      = newError(KindInput, "InvalidSlot", "slot index out of range")
	ErrWinnerMismatch   = newError(KindInput, "WinnerMismatch", "winner does not match the tally")
	ErrUnknownProposal  = newError(KindInput, "UnknownProposal", "proposal does not exist")
	ErrUnknownCandidate = newError(KindInput, "UnknownCandidate", "candidate does not exist")
	ErrUnknownContract  = newError(KindInput, "UnknownContract", "no contract at target address")
	ErrUnknownMethod    = newError(KindInput, "UnknownMethod", "contract has no such method")
	ErrInvalidArguments = newError(KindInput, "InvalidArguments", "invalid call arguments")
	ErrInvalidNonce     = newError(KindInput, "InvalidNonce", "invalid transaction nonce")
	ErrInvalidChoice    = newError(KindInput, "InvalidChoice", "invalid vote choice")
	ErrNotPayable       = newError(KindInput, "NotPayable", "method does not accept value")

	ErrBidTooLow           = newError(KindInsufficientFunds, "BidTooLow", "bid does not exceed the highest bid")
	ErrInsufficientBalance = newError(KindInsufficientFunds, "InsufficientBalance", "insufficient balance")

	ErrCallFailed       = newError(KindExternalCall, "CallFailed", "inner call failed")
	ErrTransferRejected = newError(KindExternalCall, "TransferRejected", "receiver rejected the transfer")
)

// KindOf returns the taxonomy kind of err, KindUnknown if it is not a ledger error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// CodeOf returns the stable code of err, or an empty string.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return ""
}

// ErrorForCode returns the sentinel error registered for code.
func ErrorForCode(code string) (*Error, bool) {
	e, exists := errorsByCode[code]
	return e, exists
}

// IsAlreadyDone reports whether err signals that a transition already happened.
// Racing callers treat these outcomes as successful no-ops.
func IsAlreadyDone(err error) bool {
	return errors.Is(err, ErrNothingToDo) || errors.Is(err, ErrAlreadySettled)
}
