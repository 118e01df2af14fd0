package cli

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/sporelabs/sporeverse/internal/services/credential"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Wallet authentication commands",
	}

	cmd.AddCommand(newAuthNonceCmd())
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthKeycheckCmd())

	return cmd
}

func newAuthNonceCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Request a login nonce for an address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result NonceResult
			if err := client.Get("/nonce/"+address, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Wallet address (required)")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var privateKeyHex string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in by signing a fresh nonce with a private key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
			if err != nil {
				return fmt.Errorf("invalid private key: %w", err)
			}
			address := crypto.PubkeyToAddress(key.PublicKey).Hex()

			var nonceResult NonceResult
			if err := client.Get("/nonce/"+address, &nonceResult); err != nil {
				return err
			}

			digest := accounts.TextHash([]byte(credential.ChallengeMessage(nonceResult.Nonce)))
			sig, err := crypto.Sign(digest, key)
			if err != nil {
				return fmt.Errorf("signing failed: %w", err)
			}
			sig[crypto.RecoveryIDOffset] += 27

			req := map[string]string{
				"address":   address,
				"signature": hex.EncodeToString(sig),
			}
			var result LoginResult
			if err := client.Post("/login", req, &result); err != nil {
				return err
			}

			// Save session key
			if err := cfg.SaveKey(result.Key); err != nil {
				return fmt.Errorf("failed to save session key: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&privateKeyHex, "private-key", "", "Hex-encoded private key (required)")
	_ = cmd.MarkFlagRequired("private-key")

	return cmd
}

func newAuthKeycheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keycheck",
		Short: "Look up the address bound to the current session key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Key == "" {
				return fmt.Errorf("no session key, log in first or pass --key")
			}

			req := map[string]string{"key": cfg.Key}
			var result KeycheckResult
			if err := client.GetWithBody("/keycheck", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
