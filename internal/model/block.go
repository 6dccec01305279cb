// Package model defines the row-sets persisted by the indexer.
package model

import "time"

// Block is one row of the blocks table.
type Block struct {
	Hash                    string
	Height                  uint64
	Timestamp               time.Time
	Nonce                   string
	Version                 uint32
	Bits                    string
	Difficulty              float64
	MerkleRoot              string
	Chainwork               string
	Size                    uint64
	NumTransactions         uint64
	TotalOutputs            uint64
	TotalInputs             uint64
	TotalTransparentInput   float64
	TotalTransparentOutput  float64
	TransactionIDs          []string
	PrevBlockHash           string
	NextBlockHash           string
}

// Transaction is one row of the transactions table.
type Transaction struct {
	TxID              string
	BlockHash         string
	BlockHeight       uint64
	BlockTimestamp    time.Time
	Version           string
	Overwintered      bool
	Hex               string
	NumInputs         uint64
	NumOutputs        uint64
	TotalPublicInput  float64
	TotalPublicOutput float64
}
