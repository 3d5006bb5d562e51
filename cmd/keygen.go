package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a fresh hot wallet key",
	Long: `Generate a new secp256k1 key pair and print it in .env format.
Fund the address with a small amount of ETH on every chain you scan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		address := crypto.PubkeyToAddress(privateKey.PublicKey)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# address %s\n", address.Hex())
		fmt.Fprintf(out, "PRIVATE_KEY=0x%x\n", crypto.FromECDSA(privateKey))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
