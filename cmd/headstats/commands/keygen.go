package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tolelom/headstats/config"
	"github.com/tolelom/headstats/crypto"
	"github.com/tolelom/headstats/ledger"
	"github.com/tolelom/headstats/wallet"
)

var keyFile string

// NewKeygenCmd returns the command that creates an admin keystore.
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create a new admin key",
		RunE:  keygen,
	}
	cmd.Flags().StringVar(&keyFile, "out", "admin.key", "File where the encrypted key will be written")
	return cmd
}

func keygen(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(keyFile); err == nil {
		return fmt.Errorf("a key already lives at %s", keyFile)
	}

	password := config.KeyPassword()
	if password == "" {
		fmt.Printf("WARNING: %s not set, writing an unencrypted text envelope\n", config.KeyPasswordEnv)
	}

	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	if err := wallet.SaveKey(keyFile, password, priv); err != nil {
		return fmt.Errorf("writing key: %w", err)
	}

	scriptAddr, err := ledger.ParseBech32Address(_config.Contract.ScriptAddress)
	if err != nil {
		return err
	}
	addr, err := wallet.New(priv, scriptAddr, _config.Contract.ScriptCBOR).Address().Bech32()
	if err != nil {
		return err
	}

	fmt.Printf("Key saved to: %s\n", keyFile)
	fmt.Printf("Admin address (fund this inside the head): %s\n", addr)
	return nil
}
