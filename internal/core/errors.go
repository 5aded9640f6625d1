package core

import "errors"

var (
	// ErrAuth indicates a credential rejection. Never retried; retrying a
	// bad password wastes quota and can trigger account lockouts.
	ErrAuth = errors.New("authentication failed")
	// ErrConnect indicates a transient connection failure after retries
	// were exhausted.
	ErrConnect = errors.New("connection failed")
	// ErrSummarize indicates the completion call failed. Fatal to the run:
	// no delivery is attempted and the ledger stays untouched.
	ErrSummarize = errors.New("summarization failed")
	// ErrDeliver indicates every configured delivery channel failed.
	ErrDeliver = errors.New("delivery failed")
	// ErrLedger indicates the seen-item store could not be read or written.
	ErrLedger = errors.New("ledger operation failed")
)
