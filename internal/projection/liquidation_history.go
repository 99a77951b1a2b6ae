package projection

// LiquidationEntry represents one executed liquidation.
type LiquidationEntry struct {
	Sequence    int64
	Asset       string
	Borrower    string
	Liquidator  string
	RepayAmount string
	Timestamp   int64
}

// LiquidationHistory maintains an in-memory tail of recent liquidations so
// the query service can answer without a DB round trip. The full history
// lives in vault.liquidation_history.
type LiquidationHistory struct {
	entries []LiquidationEntry
	maxSize int
}

func NewLiquidationHistory(maxSize int) *LiquidationHistory {
	return &LiquidationHistory{
		entries: make([]LiquidationEntry, 0),
		maxSize: maxSize,
	}
}

// Add records a liquidation, evicting the oldest entry when full.
func (h *LiquidationHistory) Add(entry LiquidationEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[1:]
	}
}

// QueryByBorrower returns the most recent liquidations against a borrower.
func (h *LiquidationHistory) QueryByBorrower(borrower string, limit int) []LiquidationEntry {
	result := make([]LiquidationEntry, 0)

	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if h.entries[i].Borrower == borrower {
			result = append(result, h.entries[i])
		}
	}

	return result
}

// QueryRecent returns the most recent liquidations across all borrowers.
func (h *LiquidationHistory) QueryRecent(limit int) []LiquidationEntry {
	result := make([]LiquidationEntry, 0)

	for i := len(h.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, h.entries[i])
	}

	return result
}
