// Package decode transforms a raw block document into the row-sets the
// store persists. It is a pure function with respect to its arguments
// other than the OutputLookup it consults for input resolution.
package decode

import (
	"context"
	"fmt"
	"time"

	"github.com/blockcursor/zsync/internal/model"
	"github.com/blockcursor/zsync/internal/rpcnode"
	"github.com/blockcursor/zsync/internal/utils"
	"github.com/blockcursor/zsync/pkg/safe"
)

// DecodeError reports a malformed block or transaction document.
type DecodeError struct {
	Height uint64
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode block at height %d: %s", e.Height, e.Reason)
}

// OutputLookup resolves a previously-persisted transparent output so an
// input can be decoded with its value and sender set. Not-found is a
// normal result, signaled by found=false, not an error.
type OutputLookup interface {
	Lookup(ctx context.Context, txID string, outputIndex uint32) (value float64, recipients []string, found bool, err error)
}

// Chunk is the full set of rows produced by decoding one block.
type Chunk struct {
	Block        model.Block
	Transactions []model.Transaction
	Inputs       []model.TransparentInput
	Outputs      []model.TransparentOutput
}

// Block decodes one raw block document. Decoding is all-or-nothing: either
// every row-set for the block is produced or the block is rejected. A
// malformed document is rejected with a *DecodeError; a failed output
// lookup is returned as that lookup's error, wrapped.
func Block(ctx context.Context, raw *rpcnode.RawBlock, lookup OutputLookup) (*Chunk, error) {
	if raw == nil {
		return nil, &DecodeError{Reason: "block document is nil"}
	}
	if raw.Tx == nil {
		return nil, &DecodeError{Height: raw.Height, Reason: "tx field is not an array"}
	}

	txRows := make([]model.Transaction, 0, len(raw.Tx))
	inputRows := make([]model.TransparentInput, 0, len(raw.Tx))
	outputRows := make([]model.TransparentOutput, 0, len(raw.Tx))
	txIDs := make([]string, 0, len(raw.Tx))

	var totalOutputs, totalInputs uint64
	var totalTransparentInput, totalTransparentOutput float64

	for _, tx := range raw.Tx {
		if tx == nil {
			return nil, &DecodeError{Height: raw.Height, Reason: "nil transaction in tx array"}
		}

		outputs, txPublicOutput, err := decodeOutputs(tx.Txid, tx.Vout)
		if err != nil {
			return nil, &DecodeError{Height: raw.Height, Reason: fmt.Sprintf("tx %s: %s", tx.Txid, err)}
		}
		inputs, txPublicInput, err := decodeInputs(ctx, tx.Txid, tx.Vin, lookup)
		if err != nil {
			return nil, fmt.Errorf("decode inputs for tx %s at height %d: %w", tx.Txid, raw.Height, err)
		}

		numInputs, err := safe.Uint64(len(tx.Vin))
		if err != nil {
			return nil, &DecodeError{Height: raw.Height, Reason: err.Error()}
		}
		numOutputs, err := safe.Uint64(len(tx.Vout))
		if err != nil {
			return nil, &DecodeError{Height: raw.Height, Reason: err.Error()}
		}

		txRows = append(txRows, model.Transaction{
			TxID:              tx.Txid,
			BlockHash:         raw.Hash,
			BlockHeight:       raw.Height,
			BlockTimestamp:    time.Unix(raw.Time, 0).UTC(),
			Version:           string(tx.Version),
			Overwintered:      tx.Overwintered,
			Hex:               tx.Hex,
			NumInputs:         numInputs,
			NumOutputs:        numOutputs,
			TotalPublicInput:  txPublicInput,
			TotalPublicOutput: txPublicOutput,
		})

		txIDs = append(txIDs, tx.Txid)
		outputRows = append(outputRows, outputs...)
		inputRows = append(inputRows, inputs...)
		totalOutputs += numOutputs
		totalInputs += numInputs
		totalTransparentInput += txPublicInput
		totalTransparentOutput += txPublicOutput
	}

	numTransactions, err := safe.Uint64(len(raw.Tx))
	if err != nil {
		return nil, &DecodeError{Height: raw.Height, Reason: err.Error()}
	}

	block := model.Block{
		Hash:                   raw.Hash,
		Height:                 raw.Height,
		Timestamp:              time.Unix(raw.Time, 0).UTC(),
		Nonce:                  raw.Nonce,
		Version:                raw.Version,
		Bits:                   raw.Bits,
		Difficulty:             raw.Difficulty,
		MerkleRoot:             raw.MerkleRoot,
		Chainwork:              raw.Chainwork,
		Size:                   raw.Size,
		NumTransactions:        numTransactions,
		TotalOutputs:           totalOutputs,
		TotalInputs:            totalInputs,
		TotalTransparentInput:  totalTransparentInput,
		TotalTransparentOutput: totalTransparentOutput,
		TransactionIDs:         txIDs,
		PrevBlockHash:          raw.PreviousBlockHash,
		NextBlockHash:          raw.NextBlockHash,
	}

	return &Chunk{
		Block:        block,
		Transactions: txRows,
		Inputs:       inputRows,
		Outputs:      outputRows,
	}, nil
}

func decodeOutputs(txID string, vout []rpcnode.RawVout) ([]model.TransparentOutput, float64, error) {
	rows := make([]model.TransparentOutput, 0, len(vout))
	var total float64
	for _, vo := range vout {
		if _, err := utils.BtcToSatoshis(vo.Value); err != nil {
			return nil, 0, fmt.Errorf("output %d: %w", vo.N, err)
		}

		recipients := vo.ScriptPubKey.Addresses
		if recipients == nil {
			recipients = []string{}
		}
		rows = append(rows, model.TransparentOutput{
			TxID:        txID,
			OutputIndex: vo.N,
			Value:       vo.Value,
			Recipients:  recipients,
		})
		total += vo.Value
	}
	return rows, total, nil
}

// decodeInputs resolves each vin entry against lookup. Critically, a
// resolved value and sender set are carried straight into the emitted row
// — they are never reset to defaults afterwards.
func decodeInputs(ctx context.Context, txID string, vin []rpcnode.RawVin, lookup OutputLookup) ([]model.TransparentInput, float64, error) {
	rows := make([]model.TransparentInput, 0, len(vin))
	var total float64

	for ordinal, vi := range vin {
		ordinal32, err := safe.Uint32(ordinal)
		if err != nil {
			return nil, 0, err
		}

		if vi.IsCoinbase() {
			rows = append(rows, model.TransparentInput{
				TxID:             txID,
				InputOrdinal:     ordinal32,
				SpentTxID:        model.CoinbaseSentinelTxID,
				SpentOutputIndex: 0,
				Value:            0,
				Senders:          []string{},
				Coinbase:         *vi.Coinbase,
			})
			continue
		}

		value, recipients, found, err := lookup.Lookup(ctx, vi.Txid, vi.Vout)
		if err != nil {
			return nil, 0, err
		}
		if !found {
			value = 0
			recipients = nil
		}
		if recipients == nil {
			recipients = []string{}
		}
		total += value

		rows = append(rows, model.TransparentInput{
			TxID:             txID,
			InputOrdinal:     ordinal32,
			SpentTxID:        vi.Txid,
			SpentOutputIndex: vi.Vout,
			Value:            value,
			Senders:          recipients,
			Coinbase:         "",
		})
	}

	return rows, total, nil
}
