package rpcclient

import "math"

// satoshiPerCoin is the fixed-point scale every amount-bearing RPC
// reply is converted through: the node speaks floating-point coins,
// the ledger only ever speaks integer smallest-units (spec.md §3).
const satoshiPerCoin = 1e8

// ToSatoshi converts a node-reported coin amount to the engine's
// fixed-point integer representation.
func ToSatoshi(coins float64) int64 {
	return int64(math.Round(coins * satoshiPerCoin))
}

// FutureGetInfoResult is a future promise to deliver the result of a
// GetInfoAsync call.
type FutureGetInfoResult chan *response

// Receive waits for and decodes the getinfo reply.
func (f FutureGetInfoResult) Receive() (*GetInfoResult, error) {
	raw, err := receiveFuture(f)
	if err != nil {
		return nil, err
	}
	var result GetInfoResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetInfoAsync returns a future for GetInfo.
func (c *Client) GetInfoAsync() FutureGetInfoResult {
	return c.sendCmd("getinfo")
}

// GetInfo returns the node's tip height.
func (c *Client) GetInfo() (*GetInfoResult, error) {
	return c.GetInfoAsync().Receive()
}

// FutureGetBlockHashResult is a future promise to deliver the result of
// a GetBlockHashAsync call.
type FutureGetBlockHashResult chan *response

// Receive waits for and decodes the getblockhash reply.
func (f FutureGetBlockHashResult) Receive() (string, error) {
	raw, err := receiveFuture(f)
	if err != nil {
		return "", err
	}
	var hash string
	if err := unmarshalResult(raw, &hash); err != nil {
		return "", err
	}
	return hash, nil
}

// GetBlockHashAsync returns a future for GetBlockHash.
func (c *Client) GetBlockHashAsync(height int64) FutureGetBlockHashResult {
	return c.sendCmd("getblockhash", height)
}

// GetBlockHash returns the hash of the block at height.
func (c *Client) GetBlockHash(height int64) (string, error) {
	return c.GetBlockHashAsync(height).Receive()
}

// FutureGetBlockResult is a future promise to deliver the result of a
// GetBlockAsync call.
type FutureGetBlockResult chan *response

// Receive waits for and decodes the getblock reply.
func (f FutureGetBlockResult) Receive() (*BlockResult, error) {
	raw, err := receiveFuture(f)
	if err != nil {
		return nil, err
	}
	var result BlockResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBlockAsync returns a future for GetBlock.
func (c *Client) GetBlockAsync(hash string) FutureGetBlockResult {
	return c.sendCmd("getblock", hash)
}

// GetBlock returns the block identified by hash.
func (c *Client) GetBlock(hash string) (*BlockResult, error) {
	return c.GetBlockAsync(hash).Receive()
}

// FutureGetRawTransactionResult is a future promise to deliver the
// result of a GetRawTransactionAsync call.
type FutureGetRawTransactionResult chan *response

// Receive waits for and decodes the getrawtransaction reply.
func (f FutureGetRawTransactionResult) Receive() (*RawTransactionResult, error) {
	raw, err := receiveFuture(f)
	if err != nil {
		return nil, err
	}
	var result RawTransactionResult
	if err := unmarshalResult(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRawTransactionAsync returns a future for GetRawTransaction with
// verbose=1.
func (c *Client) GetRawTransactionAsync(txID string) FutureGetRawTransactionResult {
	return c.sendCmd("getrawtransaction", txID, 1)
}

// GetRawTransaction returns the verbose decoding of txID.
func (c *Client) GetRawTransaction(txID string) (*RawTransactionResult, error) {
	return c.GetRawTransactionAsync(txID).Receive()
}
