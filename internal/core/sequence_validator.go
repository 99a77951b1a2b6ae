package core

import (
	"fmt"

	"LendingVault/internal/observability"
)

// SequenceValidator validates source sequences per partition.
// Not thread-safe — only accessed from the single-threaded core.
type SequenceValidator struct {
	expectedNextSeq map[string]int64 // partition -> next expected sequence
	metrics         *observability.Metrics
}

func NewSequenceValidator(metrics *observability.Metrics) *SequenceValidator {
	return &SequenceValidator{
		expectedNextSeq: make(map[string]int64),
		metrics:         metrics,
	}
}

// ValidateSequence checks source sequence ordering. Duplicates below the
// expected sequence are fine; new events arriving out of order or with a
// gap are rejected.
func (sv *SequenceValidator) ValidateSequence(
	partition string,
	sourceSequence int64,
	isDuplicate bool,
) error {
	expected := sv.expectedNextSeq[partition]

	if sourceSequence < expected {
		if isDuplicate {
			// Already processed
			return nil
		}
		if sv.metrics != nil {
			sv.metrics.EventOutOfOrder.WithLabelValues(partition).Inc()
		}
		return fmt.Errorf("out-of-order event: partition=%s, expected=%d, got=%d",
			partition, expected, sourceSequence)
	}

	if sourceSequence == expected {
		sv.expectedNextSeq[partition] = expected + 1
		return nil
	}

	// sourceSequence > expected - gap detected
	if sv.metrics != nil {
		sv.metrics.EventSequenceGap.WithLabelValues(partition).Inc()
	}
	return fmt.Errorf("sequence gap: partition=%s, expected=%d, got=%d",
		partition, expected, sourceSequence)
}

// ValidatePriceSequence validates feed updates. Gaps are tolerated (a feed
// is a latest-value stream) and stale updates are silently ignored.
func (sv *SequenceValidator) ValidatePriceSequence(asset string, priceSequence int64) (stale bool) {
	partition := fmt.Sprintf("price:%s", asset)

	expected := sv.expectedNextSeq[partition]

	if priceSequence <= expected {
		return true
	}

	if priceSequence > expected+1 && sv.metrics != nil {
		sv.metrics.EventSequenceGap.WithLabelValues(partition).Inc()
	}

	sv.expectedNextSeq[partition] = priceSequence + 1
	return false
}

// GetExpectedSequence returns next expected sequence for a partition
func (sv *SequenceValidator) GetExpectedSequence(partition string) int64 {
	return sv.expectedNextSeq[partition]
}

// RestorePartition initializes the expected sequence (snapshot restore)
func (sv *SequenceValidator) RestorePartition(partition string, seq int64) {
	sv.expectedNextSeq[partition] = seq
}

// GetAllPartitions returns the full partition watermark map.
func (sv *SequenceValidator) GetAllPartitions() map[string]int64 {
	out := make(map[string]int64, len(sv.expectedNextSeq))
	for k, v := range sv.expectedNextSeq {
		out[k] = v
	}
	return out
}
