// Package postgres implements the Output Lookup, Chunk Persister, and
// Checkpoint Store against a PostgreSQL database via go-pg.
package postgres

import (
	"time"

	"github.com/blockcursor/zsync/internal/model"
)

// blockRow is the ORM-tagged representation of model.Block.
type blockRow struct {
	tableName struct{} `pg:"blocks"` //nolint:unused

	Hash                    string    `pg:",pk"`
	Height                  uint64    `pg:",use_zero"`
	Timestamp               time.Time `pg:",use_zero"`
	Nonce                   string
	Version                 uint32 `pg:",use_zero"`
	Bits                    string
	Difficulty              float64 `pg:",use_zero"`
	MerkleRoot              string
	Chainwork               string
	Size                    uint64 `pg:",use_zero"`
	NumTransactions         uint64 `pg:",use_zero"`
	TotalOutputs            uint64 `pg:",use_zero"`
	TotalInputs             uint64 `pg:",use_zero"`
	TotalTransparentInput   float64 `pg:",use_zero"`
	TotalTransparentOutput  float64 `pg:",use_zero"`
	TransactionIDs          []string `pg:",array"`
	PrevBlockHash           string
	NextBlockHash           string
}

func newBlockRow(b model.Block) *blockRow {
	return &blockRow{
		Hash:                   b.Hash,
		Height:                 b.Height,
		Timestamp:              b.Timestamp,
		Nonce:                  b.Nonce,
		Version:                b.Version,
		Bits:                   b.Bits,
		Difficulty:             b.Difficulty,
		MerkleRoot:             b.MerkleRoot,
		Chainwork:              b.Chainwork,
		Size:                   b.Size,
		NumTransactions:        b.NumTransactions,
		TotalOutputs:           b.TotalOutputs,
		TotalInputs:            b.TotalInputs,
		TotalTransparentInput:  b.TotalTransparentInput,
		TotalTransparentOutput: b.TotalTransparentOutput,
		TransactionIDs:         b.TransactionIDs,
		PrevBlockHash:          b.PrevBlockHash,
		NextBlockHash:          b.NextBlockHash,
	}
}

// transactionRow is the ORM-tagged representation of model.Transaction.
type transactionRow struct {
	tableName struct{} `pg:"transactions"` //nolint:unused

	TxID              string    `pg:",pk"`
	BlockHash         string    `pg:",notnull"`
	BlockHeight       uint64    `pg:",use_zero"`
	BlockTimestamp    time.Time `pg:",use_zero"`
	Version           string
	Overwintered      bool    `pg:",use_zero"`
	Hex               string
	NumInputs         uint64  `pg:",use_zero"`
	NumOutputs        uint64  `pg:",use_zero"`
	TotalPublicInput  float64 `pg:",use_zero"`
	TotalPublicOutput float64 `pg:",use_zero"`
}

func newTransactionRow(t model.Transaction) *transactionRow {
	return &transactionRow{
		TxID:              t.TxID,
		BlockHash:         t.BlockHash,
		BlockHeight:       t.BlockHeight,
		BlockTimestamp:    t.BlockTimestamp,
		Version:           t.Version,
		Overwintered:      t.Overwintered,
		Hex:               t.Hex,
		NumInputs:         t.NumInputs,
		NumOutputs:        t.NumOutputs,
		TotalPublicInput:  t.TotalPublicInput,
		TotalPublicOutput: t.TotalPublicOutput,
	}
}

// transparentOutputRow is the ORM-tagged representation of
// model.TransparentOutput.
type transparentOutputRow struct {
	tableName struct{} `pg:"transparent_outputs"` //nolint:unused

	TxID        string   `pg:",pk"`
	OutputIndex uint32   `pg:",pk,use_zero"`
	Value       float64  `pg:",use_zero"`
	Recipients  []string `pg:",array"`
}

func newTransparentOutputRow(o model.TransparentOutput) *transparentOutputRow {
	return &transparentOutputRow{
		TxID:        o.TxID,
		OutputIndex: o.OutputIndex,
		Value:       o.Value,
		Recipients:  o.Recipients,
	}
}

func (r *transparentOutputRow) toModel() model.TransparentOutput {
	return model.TransparentOutput{
		TxID:        r.TxID,
		OutputIndex: r.OutputIndex,
		Value:       r.Value,
		Recipients:  r.Recipients,
	}
}

// transparentInputRow is the ORM-tagged representation of
// model.TransparentInput.
type transparentInputRow struct {
	tableName struct{} `pg:"transparent_inputs"` //nolint:unused

	TxID             string   `pg:",pk"`
	InputOrdinal     uint32   `pg:",pk,use_zero"`
	SpentTxID        string   `pg:",notnull"`
	SpentOutputIndex uint32   `pg:",use_zero"`
	Value            float64  `pg:",use_zero"`
	Senders          []string `pg:",array"`
	Coinbase         string
}

func newTransparentInputRow(in model.TransparentInput) *transparentInputRow {
	return &transparentInputRow{
		TxID:             in.TxID,
		InputOrdinal:     in.InputOrdinal,
		SpentTxID:        in.SpentTxID,
		SpentOutputIndex: in.SpentOutputIndex,
		Value:            in.Value,
		Senders:          in.Senders,
		Coinbase:         in.Coinbase,
	}
}

// checkpointRow is the ORM-tagged representation of model.Checkpoint.
type checkpointRow struct {
	tableName struct{} `pg:"checkpoints"` //nolint:unused

	ChunkStart    uint64 `pg:",pk,use_zero"`
	ChunkEnd      uint64 `pg:",use_zero"`
	LastCommitted int64  `pg:",use_zero"`
}

func newCheckpointRow(c model.Checkpoint) *checkpointRow {
	return &checkpointRow{
		ChunkStart:    c.ChunkStart,
		ChunkEnd:      c.ChunkEnd,
		LastCommitted: c.LastCommitted,
	}
}

func (r *checkpointRow) toModel() model.Checkpoint {
	return model.Checkpoint{
		ChunkStart:    r.ChunkStart,
		ChunkEnd:      r.ChunkEnd,
		LastCommitted: r.LastCommitted,
	}
}

// missedHeightRow is the ORM-tagged representation of model.MissedHeight.
type missedHeightRow struct {
	tableName struct{} `pg:"missed_blocks"` //nolint:unused

	Height     uint64    `pg:",pk,use_zero"`
	RecordedAt time.Time `pg:",use_zero"`
}
