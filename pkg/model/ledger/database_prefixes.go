package ledger

// Every contract owns one key prefix range of the shared store:
//   0x00-0x0F ledger, 0x10 eligibility, 0x20 tally, 0x30 contest,
//   0x40 auction, 0x50 treasury, 0x60 governance, 0x70 candidates.
const (
	// Holds the sequence number and timestamp of the last committed transaction
	LedgerStoreKeyPrefixHead byte = 0

	// Holds the next expected nonce per sender
	LedgerStoreKeyPrefixNonces byte = 1

	// Holds the balances per denomination and address
	LedgerStoreKeyPrefixBalances byte = 2
)
