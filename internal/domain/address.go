package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DisplayAddress returns the EIP-55 checksummed form of a hex address.
// Anything that is not a hex address is returned trimmed but otherwise untouched.
func DisplayAddress(address string) string {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// Shorten renders long identifiers as head...tail, e.g. 0x4838b106...bf73ce8b.
// head and tail count runes.
func Shorten(s string, head, tail int) string {
	r := []rune(s)
	if len(r) <= head+tail+3 {
		return s
	}
	return string(r[:head]) + "..." + string(r[len(r)-tail:])
}

// Prefix returns the first n runes of s.
func Prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// TxURL links a transaction hash to the etherscan explorer.
func TxURL(hash string) string {
	return "https://etherscan.io/tx/" + hash
}
