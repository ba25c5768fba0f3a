package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zkkeyless/go-keyless-prover/util"
)

var (
	outputFile string
	keyID      string
)

func init() {
	keysCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default is stdout)")
	keysCmd.Flags().StringVar(&keyID, "kid", "", "key id (default is training-wheels-<unix time>)")
	rootCmd.AddCommand(keysCmd)
}

// keysCmd generates the ed25519 training wheels key as a private JWK
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a training wheels ed25519 key",
	Long:  "Generate the ed25519 key the prover co-signs proofs with, written as a JWK",
	Run: func(cmd *cobra.Command, args []string) {
		_, private, err := ed25519.GenerateKey(rand.Reader)
		check(err)
		kid := keyID
		if kid == "" {
			kid = fmt.Sprintf("training-wheels-%d", time.Now().Unix())
		}
		fileBytes, err := util.MarshalTrainingWheelsKey(private, kid, false)
		check(err)
		if outputFile != "" {
			// fail if file already exists
			if _, err := os.Stat(outputFile); !errors.Is(err, os.ErrNotExist) {
				fmt.Printf("File already exists: %s\n", outputFile)
				os.Exit(1)
			}
			err = os.WriteFile(outputFile, fileBytes, 0600)
			check(err)
			fmt.Printf("Output file: %s\n", outputFile)
		} else {
			fmt.Printf("\n%s\n", string(fileBytes))
		}
	},
}
