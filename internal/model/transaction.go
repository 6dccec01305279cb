package model

// CoinbaseSentinelTxID is the spent_tx_id recorded for a coinbase input,
// which has no referenced output.
const CoinbaseSentinelTxID = "-1"

// TransparentOutput is one row of the transparent_outputs table, identified
// by (tx_id, output_index). Immutable after insert.
type TransparentOutput struct {
	TxID        string
	OutputIndex uint32
	Value       float64
	Recipients  []string
}

// TransparentInput is one row of the transparent_inputs table, identified
// by (tx_id, input_ordinal).
type TransparentInput struct {
	TxID             string
	InputOrdinal     uint32
	SpentTxID        string
	SpentOutputIndex uint32
	Value            float64
	Senders          []string
	Coinbase         string
}

// IsCoinbase reports whether this input has no referenced output.
func (in TransparentInput) IsCoinbase() bool {
	return in.SpentTxID == CoinbaseSentinelTxID
}
