package domain

// DonorID is an internal identifier for a donor account.
type DonorID string

// NGOID is an internal identifier for an NGO account.
type NGOID string

// RecipientID is an internal identifier for a recipient account.
type RecipientID string

// TransactionID is an internal identifier for a ledger record.
type TransactionID string
