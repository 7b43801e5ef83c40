package carver

import (
	"context"

	"github.com/5G-Cash/bulwark-explorer/addressparser"
	"github.com/5G-Cash/bulwark-explorer/carvererr"
	"github.com/5G-Cash/bulwark-explorer/carvertypes"
	"github.com/5G-Cash/bulwark-explorer/logger"
	"github.com/5G-Cash/bulwark-explorer/rpcclient"
)

var log = logger.Logger(logger.SubsystemTags.CRVR)

// ResolvedInput pairs a transaction's raw input with what the
// UtxoResolver determined it spends.
type ResolvedInput struct {
	Vin    rpcclient.RawTransactionVin
	Output *ResolvedOutput
}

// MovementBuilder turns one transaction into an ordered list of parsed
// movements (spec.md §4.3). It runs in two sweeps: BuildRequired is a
// pure function of already-resolved inputs; Parse is the only sweep
// that touches the cache or store.
type MovementBuilder struct {
	cache  *AddressCache
	params addressparser.Params
}

// NewMovementBuilder creates a builder that classifies addresses under
// params and resolves CarverAddress records through cache.
func NewMovementBuilder(cache *AddressCache, params addressparser.Params) *MovementBuilder {
	return &MovementBuilder{cache: cache, params: params}
}

// TxLabel is the stable pseudo-address label for a transaction id.
func TxLabel(txID string) string {
	return "tx:" + txID
}

// BuildRequired flattens tx's already-resolved inputs and raw outputs
// into required-movement stubs, in the inbound-first, outbound-second
// order spec.md §4.3 requires. It performs no I/O: every input's
// origin was already resolved by UtxoResolver, and output
// classification is a pure function of the node's own annotations.
func (b *MovementBuilder) BuildRequired(tx *rpcclient.RawTransactionResult, resolved []ResolvedInput, blockHeight int64) ([]carvertypes.RequiredMovement, error) {
	label := TxLabel(tx.TxID)

	isCoinbase := len(resolved) > 0 && resolved[0].Output.Kind == carvertypes.KindCoinbase
	isCoinstake := !isCoinbase && len(tx.Vout) > 0 && isPosMarker(tx.Vout[0], b.params)

	switch {
	case isCoinbase:
		return b.buildCoinbase(tx, label)
	case isCoinstake:
		return b.buildCoinstake(tx, resolved, label, blockHeight)
	default:
		return b.buildOrdinary(tx, resolved, label)
	}
}

func isPosMarker(v rpcclient.RawTransactionVout, params addressparser.Params) bool {
	_, kind := addressparser.ClassifyOutput(toParserVout(v), params)
	return kind == carvertypes.KindProofOfStake
}

// classifyOutput wraps addressparser.ClassifyOutput and logs the
// classification gap addressparser itself can't: addressparser is a
// pure function with no I/O, so the caller that actually sees an
// Unknown kind is the one that warns about it (spec.md §9's open
// question on incomplete classification coverage).
func (b *MovementBuilder) classifyOutput(vout rpcclient.RawTransactionVout, txID string) (string, carvertypes.AddressKind) {
	label, kind := addressparser.ClassifyOutput(toParserVout(vout), b.params)
	if kind == carvertypes.KindUnknown {
		log.Warnf("tx %s: output %d classified Unknown (%s)", txID, vout.N, label)
	}
	return label, kind
}

// buildCoinbase handles a block's generation transaction. Its first
// non-zero output is the primary miner reward and pays out directly
// (TxToAddress); spec.md §8 scenario 2 requires exactly this shape for
// a single-output coinbase. Any additional non-zero output (pool or
// dev-fee splits some coinbase transactions carry) routes through the
// POW pseudo-address as a pass-through leg instead of being folded
// into the primary payout, so that both halves of the taxonomy
// (TxToPowAddress, PowAddressReward) have a concrete, conservation-
// preserving role: destination_address on the first leg names the
// real payee the second leg then credits.
func (b *MovementBuilder) buildCoinbase(tx *rpcclient.RawTransactionResult, label string) ([]carvertypes.RequiredMovement, error) {
	var totalOut int64
	for _, vout := range tx.Vout {
		totalOut += rpcclient.ToSatoshi(vout.Value)
	}
	if totalOut == 0 {
		return nil, nil
	}

	stubs := []carvertypes.RequiredMovement{{
		FromLabel: carvertypes.LabelCoinbase,
		ToLabel:   label,
		Amount:    totalOut,
		Type:      carvertypes.MovementCoinbaseToTx,
	}}

	first := true
	for _, vout := range tx.Vout {
		amount := rpcclient.ToSatoshi(vout.Value)
		if amount == 0 {
			continue
		}
		payeeLabel, kind := b.classifyOutput(vout, tx.TxID)

		if first {
			first = false
			stubs = append(stubs, carvertypes.RequiredMovement{
				FromLabel: label,
				ToLabel:   payeeLabel,
				Amount:    amount,
				Type:      outboundTypeFor(kind),
			})
			continue
		}

		stubs = append(stubs,
			carvertypes.RequiredMovement{
				FromLabel:   label,
				ToLabel:     carvertypes.LabelPOW,
				Amount:      amount,
				Type:        carvertypes.MovementTxToPowAddress,
				DestAddress: payeeLabel,
			},
			carvertypes.RequiredMovement{
				FromLabel: carvertypes.LabelPOW,
				ToLabel:   payeeLabel,
				Amount:    amount,
				Type:      carvertypes.MovementPowAddressReward,
			},
		)
	}
	return stubs, nil
}

// buildCoinstake handles a proof-of-stake block's staking transaction:
// vin[0] (and any further staked inputs) are spent normally; the value
// created beyond what was spent is the implicit stake reward, split
// between the staker's own payout (the first non-marker output) and
// any masternode payee outputs that follow it.
func (b *MovementBuilder) buildCoinstake(tx *rpcclient.RawTransactionResult, resolved []ResolvedInput, label string, blockHeight int64) ([]carvertypes.RequiredMovement, error) {
	var stubs []carvertypes.RequiredMovement

	var totalIn int64
	var stakedHeight int64
	for i, ri := range resolved {
		if i == 0 {
			stakedHeight = ri.Output.BlockHeight
		}
		totalIn += ri.Output.Amount
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: ri.Output.Label,
			ToLabel:   label,
			Amount:    ri.Output.Amount,
			Type:      inboundTypeFor(ri.Output.Kind),
		})
	}

	type payout struct {
		label  string
		kind   carvertypes.AddressKind
		amount int64
	}
	var payouts []payout
	var totalOut int64
	for _, vout := range tx.Vout[1:] {
		amount := rpcclient.ToSatoshi(vout.Value)
		if amount == 0 {
			continue
		}
		payeeLabel, kind := b.classifyOutput(vout, tx.TxID)
		payouts = append(payouts, payout{payeeLabel, kind, amount})
		totalOut += amount
	}

	if len(payouts) == 0 {
		if len(stubs) == 0 {
			return nil, nil
		}
		return stubs, nil
	}

	rewardTotal := totalOut - totalIn
	if rewardTotal < 0 {
		rewardTotal = 0
	}

	staker := payouts[0]
	mnPayouts := payouts[1:]
	var mnTotal int64
	for _, p := range mnPayouts {
		mnTotal += p.amount
	}
	stakerReward := rewardTotal - mnTotal
	if stakerReward < 0 {
		stakerReward = 0
	}

	stubs = append(stubs, carvertypes.RequiredMovement{
		FromLabel:               carvertypes.LabelPOS,
		ToLabel:                 label,
		Amount:                  stakerReward,
		Type:                    carvertypes.MovementPosRewardToTx,
		PosInputAmount:          totalIn,
		PosInputBlockHeightDiff: blockHeight - stakedHeight,
	})
	if mnTotal > 0 {
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: carvertypes.LabelMN,
			ToLabel:   label,
			Amount:    mnTotal,
			Type:      carvertypes.MovementMasternodeRewardToTx,
		})
	}

	stubs = append(stubs, carvertypes.RequiredMovement{
		FromLabel: label,
		ToLabel:   staker.label,
		Amount:    staker.amount,
		Type:      carvertypes.MovementTxToPosAddress,
	})
	for _, p := range mnPayouts {
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: label,
			ToLabel:   p.label,
			Amount:    p.amount,
			Type:      carvertypes.MovementTxToMnAddress,
		})
	}
	return stubs, nil
}

// buildOrdinary handles every transaction that is neither a coinbase
// nor a coinstake: plain value flow, with any leftover between inputs
// and outputs posted explicitly as a fee.
func (b *MovementBuilder) buildOrdinary(tx *rpcclient.RawTransactionResult, resolved []ResolvedInput, label string) ([]carvertypes.RequiredMovement, error) {
	var stubs []carvertypes.RequiredMovement

	var totalIn int64
	for _, ri := range resolved {
		totalIn += ri.Output.Amount
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: ri.Output.Label,
			ToLabel:   label,
			Amount:    ri.Output.Amount,
			Type:      inboundTypeFor(ri.Output.Kind),
		})
	}

	var totalOut int64
	for _, vout := range tx.Vout {
		amount := rpcclient.ToSatoshi(vout.Value)
		if amount == 0 {
			continue
		}
		payeeLabel, kind := b.classifyOutput(vout, tx.TxID)
		totalOut += amount
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: label,
			ToLabel:   payeeLabel,
			Amount:    amount,
			Type:      outboundTypeFor(kind),
		})
	}

	fee := totalIn - totalOut
	switch {
	case fee > 0:
		stubs = append(stubs, carvertypes.RequiredMovement{
			FromLabel: label,
			ToLabel:   carvertypes.LabelFee,
			Amount:    fee,
			Type:      carvertypes.MovementTxToFee,
		})
	case fee < 0:
		return nil, carvererr.Decode(nil, "transaction %s pays out %d more than it spends", tx.TxID, -fee)
	}

	if len(stubs) == 0 {
		return nil, nil
	}
	return stubs, nil
}

func inboundTypeFor(kind carvertypes.AddressKind) carvertypes.MovementType {
	if kind == carvertypes.KindZerocoin {
		return carvertypes.MovementZerocoinToTx
	}
	return carvertypes.MovementAddressToTx
}

func outboundTypeFor(kind carvertypes.AddressKind) carvertypes.MovementType {
	if kind == carvertypes.KindZerocoin {
		return carvertypes.MovementTxToZerocoin
	}
	return carvertypes.MovementTxToAddress
}

// Parse is the builder's second sweep: it ensures a CarverAddress
// exists for every label the required-movement stubs name and attaches
// the live record to each side (spec.md §4.3 step 2). This is the only
// sweep that performs I/O.
func (b *MovementBuilder) Parse(ctx context.Context, required []carvertypes.RequiredMovement) ([]carvertypes.ParsedMovement, error) {
	parsed := make([]carvertypes.ParsedMovement, 0, len(required))
	for _, req := range required {
		from, err := b.cache.Get(ctx, req.FromLabel, kindForLabel(req.FromLabel))
		if err != nil {
			return nil, err
		}
		to, err := b.cache.Get(ctx, req.ToLabel, kindForLabel(req.ToLabel))
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, carvertypes.ParsedMovement{Required: req, From: from, To: to})
	}
	return parsed, nil
}

// kindForLabel infers the kind a freshly-created CarverAddress should
// carry from its label shape: the six special labels are well-known,
// "tx:"-prefixed labels are transaction pseudo-addresses, and
// everything else is an ordinary on-chain address. This only matters
// the first time a label is seen — after that its stored kind governs.
func kindForLabel(label string) carvertypes.AddressKind {
	switch label {
	case carvertypes.LabelCoinbase:
		return carvertypes.KindCoinbase
	case carvertypes.LabelFee:
		return carvertypes.KindFee
	case carvertypes.LabelMN:
		return carvertypes.KindMasternode
	case carvertypes.LabelPOS:
		return carvertypes.KindProofOfStake
	case carvertypes.LabelPOW:
		return carvertypes.KindProofOfWork
	case carvertypes.LabelZerocoin:
		return carvertypes.KindZerocoin
	}
	if len(label) > 3 && label[:3] == "tx:" {
		return carvertypes.KindTx
	}
	return carvertypes.KindAddress
}
