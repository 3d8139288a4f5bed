// Package main provides a CLI tool for deriving shielded-wallet
// addresses, scanning a chain for owned notes, and building/proving
// shielded spends. See spec §4 for the operations it wires together.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shieldwallet/core/address"
	"github.com/shieldwallet/core/config"
	"github.com/shieldwallet/core/contractio"
	"github.com/shieldwallet/core/keys"
	"github.com/shieldwallet/core/prover"
	"github.com/shieldwallet/core/store"
	"github.com/shieldwallet/core/txbuilder"
	"github.com/shieldwallet/core/wallet"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "walletcli",
		Short: "Shielded-transfer wallet CLI",
		Long: `walletcli derives shielded addresses, scans a chain for owned
notes, and assembles/proves shielded spends against a deployed
shielded pool contract.`,
	}

	rootCmd.AddCommand(
		addressCmd(),
		scanCmd(),
		balancesCmd(),
		sendCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openWallet opens (or bootstraps) a wallet backed by kvPath. If
// mnemonic is empty, it is loaded from a prior PersistMnemonic call
// under walletID; otherwise the supplied mnemonic is persisted
// (encrypted under encKey) so later invocations can omit --mnemonic.
func openWallet(mnemonic, passphrase, walletID string, gapLimit uint32, kvPath string, encKeyHex string) (*wallet.Wallet, store.KV, error) {
	encKeyBytes, err := hex.DecodeString(encKeyHex)
	if err != nil || len(encKeyBytes) != 32 {
		return nil, nil, fmt.Errorf("--enc-key must be 32 bytes of hex")
	}
	var encKey [32]byte
	copy(encKey[:], encKeyBytes)

	var kv store.KV
	if kvPath == "" {
		kv = store.NewMemory()
	} else {
		kv, err = store.NewLevelDB(kvPath, false)
		if err != nil {
			return nil, nil, fmt.Errorf("open kv store: %w", err)
		}
	}

	ctx := context.Background()
	if mnemonic == "" {
		loaded, _, err := wallet.LoadMnemonic(ctx, kv, walletID, encKey)
		if err != nil {
			return nil, nil, fmt.Errorf("--mnemonic not given and none persisted for wallet %q: %w", walletID, err)
		}
		mnemonic = loaded
	}

	seed, err := keys.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, nil, fmt.Errorf("derive seed: %w", err)
	}

	if err := wallet.PersistMnemonic(ctx, kv, walletID, encKey, mnemonic, config.DefaultDerivationPath); err != nil {
		return nil, nil, fmt.Errorf("persist mnemonic: %w", err)
	}

	w := wallet.New(walletID, kv, seed, encKey, gapLimit)
	return w, kv, nil
}

// addressCmd derives and prints a single bech32 address.
func addressCmd() *cobra.Command {
	var (
		mnemonic   string
		passphrase string
		index      uint32
		change     bool
		chainID    int64
		anyChain   bool
	)

	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive a bech32 shielded address",
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := keys.SeedFromMnemonic(mnemonic, passphrase)
			if err != nil {
				return err
			}
			hd := keys.NewWallet(seed)
			kp, err := hd.DeriveIndex(change, index)
			if err != nil {
				return fmt.Errorf("derive keypair: %w", err)
			}

			var chainPtr *int64
			if !anyChain {
				chainPtr = &chainID
			}
			addr, err := address.Encode(kp.PublicKey, chainPtr)
			if err != nil {
				return fmt.Errorf("encode address: %w", err)
			}
			fmt.Println(addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP-39 mnemonic (required)")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "BIP-39 passphrase")
	cmd.Flags().Uint32Var(&index, "index", 0, "derivation index")
	cmd.Flags().BoolVar(&change, "change", false, "derive from the change sub-tree instead of primary")
	cmd.Flags().Int64Var(&chainID, "chain-id", 1, "chain ID to encode the address for")
	cmd.Flags().BoolVar(&anyChain, "any-chain", false, "encode under the chain-agnostic prefix")
	_ = cmd.MarkFlagRequired("mnemonic")

	return cmd
}

// scanCmd replays a contract's events and updates wallet scan state.
func scanCmd() *cobra.Command {
	var (
		mnemonic   string
		walletID   string
		kvPath     string
		encKeyHex  string
		chainID    int64
		contract   string
		rpcURL     string
		gapLimit   uint32
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Replay pool events and update wallet scan state",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, kv, err := openWallet(mnemonic, "", walletID, gapLimit, kvPath, encKeyHex)
			if err != nil {
				return err
			}
			defer kv.Close()

			client, err := dialEthClient(rpcURL)
			if err != nil {
				return err
			}

			adapter := contractio.New(client, kv, contractio.Config{
				Contract:   common.HexToAddress(contract),
				ChunkSize:  config.DefaultScanChunkSize,
				MaxRetries: config.DefaultScanMaxRetries,
			})

			ctx := context.Background()
			if err := adapter.Sync(ctx, chainID, w); err != nil {
				return fmt.Errorf("sync contract events: %w", err)
			}
			if err := w.Scan(ctx, chainID, adapter); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			fmt.Println("scan complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP-39 mnemonic (required on first use for wallet-id; persisted thereafter)")
	cmd.Flags().StringVar(&walletID, "wallet-id", "default", "wallet identifier")
	cmd.Flags().StringVar(&kvPath, "kv-path", "", "leveldb directory (empty = in-memory)")
	cmd.Flags().StringVar(&encKeyHex, "enc-key", "", "32-byte hex symmetric key for persisted state (required)")
	cmd.Flags().Int64Var(&chainID, "chain-id", 1, "chain ID to scan")
	cmd.Flags().StringVar(&contract, "contract", "", "shielded pool contract address (required)")
	cmd.Flags().StringVar(&rpcURL, "rpc-url", "", "EVM JSON-RPC endpoint (required)")
	cmd.Flags().Uint32Var(&gapLimit, "gap-limit", config.DefaultGapLimit, "scanner gap limit")
	_ = cmd.MarkFlagRequired("enc-key")
	_ = cmd.MarkFlagRequired("contract")
	_ = cmd.MarkFlagRequired("rpc-url")

	return cmd
}

// balancesCmd prints the wallet's per-token balances as JSON.
func balancesCmd() *cobra.Command {
	var (
		mnemonic  string
		walletID  string
		kvPath    string
		encKeyHex string
		chainID   int64
	)

	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Print per-token balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, kv, err := openWallet(mnemonic, "", walletID, 0, kvPath, encKeyHex)
			if err != nil {
				return err
			}
			defer kv.Close()

			balances, err := w.Balances(context.Background(), chainID)
			if err != nil {
				return fmt.Errorf("balances: %w", err)
			}
			out, err := json.MarshalIndent(balances, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP-39 mnemonic (required on first use for wallet-id; persisted thereafter)")
	cmd.Flags().StringVar(&walletID, "wallet-id", "default", "wallet identifier")
	cmd.Flags().StringVar(&kvPath, "kv-path", "", "leveldb directory (empty = in-memory)")
	cmd.Flags().StringVar(&encKeyHex, "enc-key", "", "32-byte hex symmetric key for persisted state (required)")
	cmd.Flags().Int64Var(&chainID, "chain-id", 1, "chain ID")
	_ = cmd.MarkFlagRequired("enc-key")

	return cmd
}

// sendCmd assembles a shielded spend, proves it, and prints the
// transact calldata as JSON.
func sendCmd() *cobra.Command {
	var (
		mnemonic       string
		walletID       string
		kvPath         string
		encKeyHex      string
		chainID        int64
		tokenHex       string
		recipientAddr  string
		amount         int64
		artifactsDir   string
		outputFile     string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build, prove, and print calldata for a shielded transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, kv, err := openWallet(mnemonic, "", walletID, 0, kvPath, encKeyHex)
			if err != nil {
				return err
			}
			defer kv.Close()

			decoded, err := address.Decode(recipientAddr)
			if err != nil {
				return fmt.Errorf("decode recipient: %w", err)
			}

			tokenBytes, err := hex.DecodeString(tokenHex)
			if err != nil || len(tokenBytes) != 32 {
				return fmt.Errorf("--token must be 32 bytes of hex")
			}
			var token [32]byte
			copy(token[:], tokenBytes)

			req := txbuilder.Request{
				ChainID: chainID,
				Token:   token,
				Outputs: []txbuilder.RecipientOutput{{
					Pubkey: decoded.Pubkey,
					Amount: bigFromInt64(amount),
					Token:  token,
				}},
			}

			ctx := context.Background()
			built, err := txbuilder.Build(ctx, w, req)
			if err != nil {
				return fmt.Errorf("build transaction: %w", err)
			}

			adapter := prover.New(prover.FileArtifacts{Dir: artifactsDir})
			circuit := prover.Circuit(built.Circuit)
			proof, err := adapter.Prove(ctx, circuit, built.Private, publicValuesFor(built))
			if err != nil {
				return fmt.Errorf("prove: %w", err)
			}

			calldata, err := contractio.EncodeTransact(built, proof, common.Address{}, bigFromInt64(0))
			if err != nil {
				return fmt.Errorf("encode calldata: %w", err)
			}

			out, err := json.MarshalIndent(calldata, "", "  ")
			if err != nil {
				return err
			}
			if outputFile != "" {
				return os.WriteFile(outputFile, out, 0644)
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&mnemonic, "mnemonic", "", "BIP-39 mnemonic (required on first use for wallet-id; persisted thereafter)")
	cmd.Flags().StringVar(&walletID, "wallet-id", "default", "wallet identifier")
	cmd.Flags().StringVar(&kvPath, "kv-path", "", "leveldb directory (empty = in-memory)")
	cmd.Flags().StringVar(&encKeyHex, "enc-key", "", "32-byte hex symmetric key for persisted state (required)")
	cmd.Flags().Int64Var(&chainID, "chain-id", 1, "chain ID")
	cmd.Flags().StringVar(&tokenHex, "token", "", "32-byte hex token identifier (required)")
	cmd.Flags().StringVar(&recipientAddr, "to", "", "recipient bech32 address (required)")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount to send")
	cmd.Flags().StringVar(&artifactsDir, "artifacts-dir", "./zk-artifacts", "directory holding <circuit>.wasm/.zkey/.vkey.json")
	cmd.Flags().StringVar(&outputFile, "output", "", "output file for the calldata JSON (defaults to stdout)")
	_ = cmd.MarkFlagRequired("enc-key")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func publicValuesFor(built *txbuilder.Built) prover.PublicValues {
	return prover.PublicValues{
		AdaptID:          built.Private.AdaptID,
		DepositAmount:    built.Private.DepositAmount,
		WithdrawAmount:   built.Private.WithdrawAmount,
		OutputTokenField: built.Private.OutputTokenField,
		OutputEthAddress: built.Private.OutputEthAddress,
		TreeNumber:       built.Private.TreeNumber,
		MerkleRoot:       built.Private.MerkleRoot,
		Nullifiers:       built.Private.Nullifiers,
		CommitmentsOut:   built.Private.CommitmentsOut,
		CiphertextHash:   built.Private.CiphertextHash,
	}
}
