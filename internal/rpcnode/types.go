// Package rpcnode implements the node JSON-RPC transport the Chunk
// Downloader and the monitoring loops depend on.
package rpcnode

import "encoding/json"

// FlexString decodes a JSON field that a node may emit as either a quoted
// string or a bare number, as this chain's RPC does for transaction
// version across different verbosity levels.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// RawScriptPubKey is the scriptPubKey object of a vout entry.
type RawScriptPubKey struct {
	Addresses []string `json:"addresses"`
}

// RawVout is one element of a transaction's vout array.
type RawVout struct {
	N            uint32          `json:"n"`
	Value        float64         `json:"value"`
	ScriptPubKey RawScriptPubKey `json:"scriptPubKey"`
}

// RawVin is one element of a transaction's vin array. Coinbase is non-nil
// only for the synthetic coinbase input.
type RawVin struct {
	Txid     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	Coinbase *string `json:"coinbase,omitempty"`
}

// IsCoinbase reports whether this vin entry is the coinbase input.
func (v RawVin) IsCoinbase() bool {
	return v.Coinbase != nil
}

// RawTransaction is one element of a raw block's tx array.
type RawTransaction struct {
	Txid         string         `json:"txid"`
	Overwintered bool           `json:"overwintered"`
	Version      FlexString     `json:"version"`
	Hex          string         `json:"hex"`
	Vin          []RawVin       `json:"vin"`
	Vout         []RawVout      `json:"vout"`
}

// RawBlock is the verbose (verbosity=2) getblock response document.
type RawBlock struct {
	Hash              string           `json:"hash"`
	Height            uint64           `json:"height"`
	Time              int64            `json:"time"`
	Nonce             string           `json:"nonce"`
	Version           uint32           `json:"version"`
	Bits              string           `json:"bits"`
	Difficulty        float64          `json:"difficulty"`
	MerkleRoot        string           `json:"merkleroot"`
	Chainwork         string           `json:"chainwork"`
	Size              uint64            `json:"size"`
	PreviousBlockHash string            `json:"previousblockhash"`
	NextBlockHash     string            `json:"nextblockhash"`
	Tx                []*RawTransaction `json:"tx"`
}
