// Package evmpool reads and invokes the liquidity pool contract over JSON-RPC.
package evmpool

// PoolABI covers the pool entry points. Amounts are int128; argument order
// matches the contract.
const PoolABI = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "buy_a", "type": "bool"},
			{"name": "out", "type": "int128"},
			{"name": "in_max", "type": "int128"}
		],
		"name": "swap",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "share_amount", "type": "int128"},
			{"name": "min_a", "type": "int128"},
			{"name": "min_b", "type": "int128"}
		],
		"name": "withdraw",
		"outputs": [
			{"name": "", "type": "int128"},
			{"name": "", "type": "int128"}
		],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "get_rsrvs",
		"outputs": [
			{"name": "", "type": "int128"},
			{"name": "", "type": "int128"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "get_shares",
		"outputs": [{"name": "", "type": "int128"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "share_id",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// TokenABI covers the token reads the pool context needs.
const TokenABI = `[
	{
		"inputs": [{"name": "id", "type": "address"}],
		"name": "balance",
		"outputs": [{"name": "", "type": "int128"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "decimals",
		"outputs": [{"name": "", "type": "uint32"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "symbol",
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Method names.
const (
	methodSwap     = "swap"
	methodWithdraw = "withdraw"
	methodReserves = "get_rsrvs"
	methodShares   = "get_shares"
	methodShareID  = "share_id"
	methodBalance  = "balance"
	methodDecimals = "decimals"
	methodSymbol   = "symbol"
)
