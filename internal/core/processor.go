package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"LendingVault/internal/event"
	"LendingVault/internal/observability"
	"LendingVault/internal/oracle"
	"LendingVault/internal/strategy"
	"LendingVault/internal/token"
	"LendingVault/internal/vault"
)

var (
	ErrUnknownReceiver = errors.New("unknown flash loan receiver")
	ErrUnknownVenue    = errors.New("unknown reward venue")
	ErrBadAddress      = errors.New("malformed address")
	ErrBadAmount       = errors.New("malformed amount")
)

// Processor is the single-threaded event pipeline. Every state mutation
// flows through ProcessEvent: dedup, source-sequence validation, dispatch
// into the lending engine, state hashing, then emission to the persistence
// and projection channels. Timestamps are versioned inputs carried by the
// events; the processor never reads the wall clock for state transitions.
type Processor struct {
	sequence int64
	hasher   *StateHasher

	engine *vault.Engine
	bank   *token.Bank

	feeds             map[common.Address]*oracle.Feed
	strategies        map[string]strategy.Snapshotter
	gauges            map[string]*strategy.MemoryGauge
	boosters          map[string]*strategy.MemoryBooster
	boosterStrategies map[string]*strategy.BoosterStrategy
	receivers         map[string]vault.FlashLoanReceiver

	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	metrics           *observability.Metrics
	logger            zerolog.Logger

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

// CoreOutput is what the processor emits per applied event.
type CoreOutput struct {
	Envelope *event.EventEnvelope

	// Positions touched by the event, in post-apply form. Projection
	// workers upsert these without re-deriving engine state.
	Positions []PositionUpdate

	// Canonical bytes hashed into the state hash.
	StateDelta []byte
}

// PositionUpdate is a post-apply copy of one position.
type PositionUpdate struct {
	Asset             string
	Account           string
	CollateralAmount  string
	BorrowAmount      string
	DebtIndexSnapshot string
}

func NewProcessor(
	startSequence int64,
	engine *vault.Engine,
	bank *token.Bank,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		sequence:          startSequence,
		hasher:            NewStateHasher(),
		engine:            engine,
		bank:              bank,
		feeds:             make(map[common.Address]*oracle.Feed),
		strategies:        make(map[string]strategy.Snapshotter),
		gauges:            make(map[string]*strategy.MemoryGauge),
		boosters:          make(map[string]*strategy.MemoryBooster),
		boosterStrategies: make(map[string]*strategy.BoosterStrategy),
		receivers:         make(map[string]vault.FlashLoanReceiver),
		idempotency:       NewIdempotencyChecker(1_000_000, dbChecker, metrics),
		sequenceValidator: NewSequenceValidator(metrics),
		metrics:           metrics,
		logger:            logger,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}
}

// RegisterFeed binds an asset to the feed the ingestion layer writes into.
func (p *Processor) RegisterFeed(asset common.Address, feed *oracle.Feed) {
	p.feeds[asset] = feed
}

// RegisterStrategy makes a strategy's pool state part of snapshots and the
// state digest. The name keys snapshot entries and must be stable across
// restarts.
func (p *Processor) RegisterStrategy(name string, snap strategy.Snapshotter) {
	p.strategies[name] = snap
}

// RegisterGauge binds a venue name to an in-process gauge so that observed
// reward arrivals can be applied.
func (p *Processor) RegisterGauge(name string, gauge *strategy.MemoryGauge) {
	p.gauges[name] = gauge
}

// RegisterBooster binds a venue name to an in-process booster and the
// strategy that stakes into it.
func (p *Processor) RegisterBooster(name string, booster *strategy.MemoryBooster, strat *strategy.BoosterStrategy) {
	p.boosters[name] = booster
	p.boosterStrategies[name] = strat
}

// RegisterFlashLoanReceiver binds a callback name usable in flash loan
// events.
func (p *Processor) RegisterFlashLoanReceiver(name string, receiver vault.FlashLoanReceiver) {
	p.receivers[name] = receiver
}

// Run consumes events until the context ends or the channel closes.
// Rejected events are logged and skipped; the loop never stops on them.
func (p *Processor) Run(ctx context.Context, inbound <-chan event.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-inbound:
			if !ok {
				return
			}
			if err := p.ProcessEvent(evt); err != nil {
				p.logger.Error().Err(err).
					Str("event_type", evt.EventType().String()).
					Str("idempotency_key", evt.IdempotencyKey()).
					Msg("event rejected")
			}
		}
	}
}

// ProcessEvent is the main processing pipeline.
func (p *Processor) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := p.idempotency.IsDuplicate(eventType, idempotencyKey)

	// Step 2: Sequence validation. Feed updates tolerate gaps and drop
	// stale values; everything else is strict per partition.
	if priceEvt, ok := evt.(*event.PriceUpdate); ok {
		if stale := p.sequenceValidator.ValidatePriceSequence(priceEvt.AssetAddr, priceEvt.Sequence); stale || isDuplicate {
			p.rejected(eventType, "stale")
			return nil
		}
	} else {
		if err := p.sequenceValidator.ValidateSequence(p.partition(evt), evt.SourceSequence(), isDuplicate); err != nil {
			p.rejected(eventType, "sequence")
			return fmt.Errorf("sequence validation failed: %w", err)
		}
		if isDuplicate {
			p.rejected(eventType, "duplicate")
			return nil
		}
	}

	// Step 3: Dispatch into the engine
	positions, err := p.dispatch(evt)
	if err != nil {
		p.rejected(eventType, "apply")
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: State digest and hash chain
	hashStart := time.Now()
	stateDelta := p.computeStateDigest()
	prevHash := p.hasher.GetPrevHash()
	stateHash := p.hasher.ComputeHash(p.sequence, stateDelta)
	if p.metrics != nil {
		p.metrics.CoreStateHashDur.Observe(time.Since(hashStart).Seconds())
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("payload marshal: %w", err)
	}

	envelope := &event.EventEnvelope{
		Sequence:       p.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		Asset:          evt.Asset(),
		Timestamp:      p.eventTimestamp(evt),
		SourceSequence: evt.SourceSequence(),
		Payload:        payload,
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Positions:  positions,
		StateDelta: stateDelta,
	}

	// Step 5: Emit. Persistence gets a blocking send so no applied event
	// is ever lost; projections get a non-blocking send and rebuild from
	// the event log if they fall behind.
	select {
	case p.persistChan <- output:
	default:
		if p.metrics != nil {
			p.metrics.PersistBackpressure.Inc()
		}
		p.persistChan <- output
	}

	select {
	case p.projectionChan <- output:
	default:
		if p.metrics != nil {
			p.metrics.ProjectionDrops.WithLabelValues("core").Inc()
		}
	}

	p.sequence++

	// Step 6: Mark as processed
	p.idempotency.MarkProcessed(eventType, idempotencyKey)

	if p.metrics != nil {
		p.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		p.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		p.metrics.CoreSequence.Set(float64(p.sequence))
	}

	return nil
}

func (p *Processor) rejected(eventType, reason string) {
	if p.metrics != nil {
		p.metrics.CoreEventsRejected.WithLabelValues(eventType, reason).Inc()
	}
}

// partition determines the partition key for sequence validation.
func (p *Processor) partition(evt event.Event) string {
	if asset := evt.Asset(); asset != nil {
		return fmt.Sprintf("asset:%s", *asset)
	}
	return "global"
}

// eventTimestamp extracts the versioned timestamp from an event. Every
// event carries one; state transitions must not depend on wall-clock time.
func (p *Processor) eventTimestamp(evt event.Event) time.Time {
	switch e := evt.(type) {
	case *event.Deposit:
		return e.Timestamp
	case *event.Borrow:
		return e.Timestamp
	case *event.Repay:
		return e.Timestamp
	case *event.Withdraw:
		return e.Timestamp
	case *event.Liquidate:
		return e.Timestamp
	case *event.Accrue:
		return e.Timestamp
	case *event.ClaimRewards:
		return e.Timestamp
	case *event.FlashLoan:
		return e.Timestamp
	case *event.PriceUpdate:
		return e.Timestamp
	case *event.RewardAccrual:
		return e.Timestamp
	case *event.RiskConfigUpdate:
		return e.Timestamp
	case *event.InterestRateUpdate:
		return e.Timestamp
	case *event.FlashLoanFeeUpdate:
		return e.Timestamp
	case *event.LiquidationPenaltyUpdate:
		return e.Timestamp
	case *event.PoolRegistration:
		return e.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: eventTimestamp called with unhandled event type %T", evt))
	}
}

func (p *Processor) dispatch(evt event.Event) ([]PositionUpdate, error) {
	switch e := evt.(type) {
	case *event.Deposit:
		return p.handleDeposit(e)
	case *event.Borrow:
		return p.handleBorrow(e)
	case *event.Repay:
		return p.handleRepay(e)
	case *event.Withdraw:
		return p.handleWithdraw(e)
	case *event.Liquidate:
		return p.handleLiquidate(e)
	case *event.Accrue:
		return nil, p.handleAccrue(e)
	case *event.ClaimRewards:
		return nil, p.handleClaimRewards(e)
	case *event.FlashLoan:
		return nil, p.handleFlashLoan(e)
	case *event.PriceUpdate:
		return nil, p.handlePriceUpdate(e)
	case *event.RewardAccrual:
		return nil, p.handleRewardAccrual(e)
	case *event.RiskConfigUpdate:
		return nil, p.handleRiskConfigUpdate(e)
	case *event.InterestRateUpdate:
		return nil, p.handleInterestRateUpdate(e)
	case *event.FlashLoanFeeUpdate:
		return nil, p.handleFlashLoanFeeUpdate(e)
	case *event.LiquidationPenaltyUpdate:
		return nil, p.handleLiquidationPenaltyUpdate(e)
	case *event.PoolRegistration:
		return nil, p.handlePoolRegistration(e)
	default:
		return nil, fmt.Errorf("unknown event type: %T", evt)
	}
}

func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrBadAddress, s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return v, nil
}

func (p *Processor) positionUpdate(asset, account common.Address) PositionUpdate {
	pos, _ := p.engine.GetPosition(asset, account)
	return PositionUpdate{
		Asset:             asset.Hex(),
		Account:           account.Hex(),
		CollateralAmount:  pos.CollateralAmount.String(),
		BorrowAmount:      pos.BorrowAmount.String(),
		DebtIndexSnapshot: pos.DebtIndexSnapshot.String(),
	}
}

func (p *Processor) handleDeposit(evt *event.Deposit) ([]PositionUpdate, error) {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(evt.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(evt.Amount)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Deposit(evt.Timestamp, asset, account, amount); err != nil {
		return nil, err
	}
	return []PositionUpdate{p.positionUpdate(asset, account)}, nil
}

func (p *Processor) handleBorrow(evt *event.Borrow) ([]PositionUpdate, error) {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(evt.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(evt.Amount)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Borrow(evt.Timestamp, asset, account, amount); err != nil {
		return nil, err
	}
	return []PositionUpdate{p.positionUpdate(asset, account)}, nil
}

func (p *Processor) handleRepay(evt *event.Repay) ([]PositionUpdate, error) {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(evt.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(evt.Amount)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Repay(evt.Timestamp, asset, account, amount); err != nil {
		return nil, err
	}
	return []PositionUpdate{p.positionUpdate(asset, account)}, nil
}

func (p *Processor) handleWithdraw(evt *event.Withdraw) ([]PositionUpdate, error) {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return nil, err
	}
	account, err := parseAddr(evt.Account)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(evt.Amount)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Withdraw(evt.Timestamp, asset, account, amount); err != nil {
		return nil, err
	}
	return []PositionUpdate{p.positionUpdate(asset, account)}, nil
}

func (p *Processor) handleLiquidate(evt *event.Liquidate) ([]PositionUpdate, error) {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return nil, err
	}
	liquidator, err := parseAddr(evt.Liquidator)
	if err != nil {
		return nil, err
	}
	borrower, err := parseAddr(evt.Borrower)
	if err != nil {
		return nil, err
	}
	repay, err := parseAmount(evt.RepayAmount)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Liquidate(evt.Timestamp, asset, liquidator, borrower, repay); err != nil {
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.LiquidationsTotal.WithLabelValues(asset.Hex()).Inc()
	}
	// The liquidator's seized share is restaked as its own position.
	return []PositionUpdate{
		p.positionUpdate(asset, borrower),
		p.positionUpdate(asset, liquidator),
	}, nil
}

func (p *Processor) handleAccrue(evt *event.Accrue) error {
	minted, err := p.engine.Accrue(evt.Timestamp)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.TreasuryMints.Inc()
	}
	p.logger.Info().Str("minted", minted.String()).Msg("treasury interest realized")
	return nil
}

func (p *Processor) handleClaimRewards(evt *event.ClaimRewards) error {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return err
	}
	account, err := parseAddr(evt.Account)
	if err != nil {
		return err
	}
	payouts, err := p.engine.Claim(evt.Timestamp, asset, account)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		p.metrics.RewardsClaimed.WithLabelValues(asset.Hex()).Inc()
	}
	for _, payout := range payouts {
		p.logger.Info().Str("account", account.Hex()).Str("token", payout.Token.Hex()).
			Str("amount", payout.Amount.String()).Msg("rewards claimed")
	}
	return nil
}

func (p *Processor) handleFlashLoan(evt *event.FlashLoan) error {
	receiver, ok := p.receivers[evt.Receiver]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownReceiver, evt.Receiver)
	}
	recipient, err := parseAddr(evt.Recipient)
	if err != nil {
		return err
	}
	amount, err := parseAmount(evt.Amount)
	if err != nil {
		return err
	}
	if err := p.engine.FlashLoan(evt.Timestamp, receiver, recipient, amount, nil); err != nil {
		if p.metrics != nil {
			p.metrics.FlashLoansTotal.WithLabelValues("reverted").Inc()
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.FlashLoansTotal.WithLabelValues("completed").Inc()
	}
	return nil
}

func (p *Processor) handlePriceUpdate(evt *event.PriceUpdate) error {
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return err
	}
	value, err := parseAmount(evt.Value)
	if err != nil {
		return err
	}
	feed, ok := p.feeds[asset]
	if !ok {
		// Feeds may start publishing before the asset is configured.
		// Holding the value keeps the update in the event log and the
		// dedup/sequence state; the composer only sees the feed once a
		// manifest entry registers the asset on a later restart.
		feed = oracle.NewFeed(evt.Decimals)
		p.feeds[asset] = feed
	}
	feed.Update(value, evt.Timestamp)
	if p.metrics != nil {
		p.metrics.PriceUpdatesTotal.WithLabelValues(asset.Hex()).Inc()
	}
	return nil
}

func (p *Processor) handleRewardAccrual(evt *event.RewardAccrual) error {
	if gauge, ok := p.gauges[evt.Venue]; ok {
		if len(evt.Amounts) != 1 {
			return fmt.Errorf("gauge venue %q expects 1 amount, got %d", evt.Venue, len(evt.Amounts))
		}
		amount, err := parseAmount(evt.Amounts[0])
		if err != nil {
			return err
		}
		if err := gauge.AddRewards(amount); err != nil {
			return err
		}
	} else if booster, ok := p.boosters[evt.Venue]; ok {
		if len(evt.Amounts) != 2 {
			return fmt.Errorf("booster venue %q expects 2 amounts, got %d", evt.Venue, len(evt.Amounts))
		}
		primary, err := parseAmount(evt.Amounts[0])
		if err != nil {
			return err
		}
		secondary, err := parseAmount(evt.Amounts[1])
		if err != nil {
			return err
		}
		if err := booster.AddRewards(evt.PoolID, primary, secondary); err != nil {
			return err
		}
	} else {
		return fmt.Errorf("%w: %q", ErrUnknownVenue, evt.Venue)
	}
	if p.metrics != nil {
		p.metrics.RewardAccruals.WithLabelValues(evt.Venue).Inc()
	}
	return nil
}

func (p *Processor) handleRiskConfigUpdate(evt *event.RiskConfigUpdate) error {
	caller, err := parseAddr(evt.Caller)
	if err != nil {
		return err
	}
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return err
	}
	return p.engine.SetRiskConfig(caller, asset, vault.RiskConfig{
		LoanToValueBps:          evt.LoanToValueBps,
		LiquidationThresholdBps: evt.LiquidationThresholdBps,
		Decimals:                evt.Decimals,
	})
}

func (p *Processor) handleInterestRateUpdate(evt *event.InterestRateUpdate) error {
	caller, err := parseAddr(evt.Caller)
	if err != nil {
		return err
	}
	return p.engine.SetInterestRate(evt.Timestamp, caller, evt.RateBps)
}

func (p *Processor) handleFlashLoanFeeUpdate(evt *event.FlashLoanFeeUpdate) error {
	caller, err := parseAddr(evt.Caller)
	if err != nil {
		return err
	}
	return p.engine.SetFlashLoanFee(caller, evt.FeeBps)
}

func (p *Processor) handleLiquidationPenaltyUpdate(evt *event.LiquidationPenaltyUpdate) error {
	caller, err := parseAddr(evt.Caller)
	if err != nil {
		return err
	}
	return p.engine.SetLiquidationPenalty(caller, evt.PenaltyBps)
}

func (p *Processor) handlePoolRegistration(evt *event.PoolRegistration) error {
	caller, err := parseAddr(evt.Caller)
	if err != nil {
		return err
	}
	if caller != p.engine.Admin() {
		return vault.ErrUnauthorized
	}
	asset, err := parseAddr(evt.AssetAddr)
	if err != nil {
		return err
	}
	strat, ok := p.boosterStrategies[evt.Venue]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVenue, evt.Venue)
	}
	p.boosters[evt.Venue].AddPool(evt.PoolID, asset)
	strat.SetPoolID(asset, evt.PoolID)
	p.logger.Info().Str("venue", evt.Venue).Str("asset", asset.Hex()).
		Uint64("pid", evt.PoolID).Msg("booster pool registered")
	return nil
}

// digestState is the canonical serialized form hashed into the state hash.
// Maps marshal with sorted keys, all nested exports are pre-sorted, and
// amounts are decimal strings, so equal state always yields equal bytes.
type digestState struct {
	Engine   vault.State                               `json:"engine"`
	Bank     token.State                               `json:"bank"`
	Pools    map[string][]strategy.PoolSnapshot        `json:"pools"`
	Gauges   map[string]strategy.GaugeVenueSnapshot    `json:"gauges"`
	Boosters map[string][]strategy.BoosterPoolSnapshot `json:"boosters"`
}

func (p *Processor) exportDigestState() digestState {
	ds := digestState{
		Engine:   p.engine.ExportState(),
		Bank:     p.bank.ExportState(),
		Pools:    make(map[string][]strategy.PoolSnapshot, len(p.strategies)),
		Gauges:   make(map[string]strategy.GaugeVenueSnapshot, len(p.gauges)),
		Boosters: make(map[string][]strategy.BoosterPoolSnapshot, len(p.boosters)),
	}
	for name, snap := range p.strategies {
		ds.Pools[name] = snap.ExportPools()
	}
	for name, gauge := range p.gauges {
		ds.Gauges[name] = gauge.ExportState()
	}
	for name, booster := range p.boosters {
		ds.Boosters[name] = booster.ExportState()
	}
	return ds
}

func (p *Processor) computeStateDigest() []byte {
	data, err := json.Marshal(p.exportDigestState())
	if err != nil {
		panic(fmt.Sprintf("FATAL: state digest marshal: %v", err))
	}
	return data
}

// GetSequence returns the next sequence number to assign.
func (p *Processor) GetSequence() int64 {
	return p.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (p *Processor) GetStateHash() [32]byte {
	return p.hasher.GetPrevHash()
}
