package wallet

import "fmt"

// walletDetailsKey matches spec §6's persisted layout:
// ["wallet", walletId_hex_pad64, "0"*64].
func walletDetailsKey(walletID string) string {
	return fmt.Sprintf("wallet:%064s:%064d", walletID, 0)
}

// mnemonicKey matches spec §6: ["wallet", walletId].
func mnemonicKey(walletID string) string {
	return fmt.Sprintf("wallet:%s", walletID)
}

// txoKey matches spec §6's TXO record layout: a zero-padded tree token
// and zero-padded position token. The hex part is at least two digits
// wide, so key order matches numeric (tree, position) order only for
// values below 256; TXOs sorts its result explicitly.
func txoKey(walletID string, chainID int64, tree, position uint64) string {
	return fmt.Sprintf("wallet:%s:txo:%d:%030s%02x:%030s%02x",
		walletID, chainID, "", tree, "", position)
}

// txoTreePrefix returns the prefix covering every TXO in one tree.
func txoTreePrefix(walletID string, chainID int64, tree uint64) string {
	return fmt.Sprintf("wallet:%s:txo:%d:%030s%02x:", walletID, chainID, "", tree)
}

// txoChainPrefix returns the prefix covering every TXO for one chain.
func txoChainPrefix(walletID string, chainID int64) string {
	return fmt.Sprintf("wallet:%s:txo:%d:", walletID, chainID)
}
