package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/club-scheduler/internal/crypto"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate an ENCRYPT_KEY value (base64)",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := make([]byte, crypto.KeySize)
			if _, err := rand.Read(key); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "export ENCRYPT_KEY=%s\n", base64.StdEncoding.EncodeToString(key))
			return nil
		},
	}
}
