package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zkkeyless/go-keyless-prover/util"
)

var asJwk bool

func init() {
	vkCmd.Flags().BoolVar(&asJwk, "jwk", false, "print the public key as a JWK instead of hex")
	rootCmd.AddCommand(vkCmd)
}

// vkCmd prints the public half of a training wheels key file
var vkCmd = &cobra.Command{
	Use:   "vk <key file>",
	Short: "Print the training wheels public key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		priv, err := util.LoadTrainingWheelsKey(args[0])
		check(err)
		pub := priv.Public().(ed25519.PublicKey)
		if !asJwk {
			fmt.Println(hex.EncodeToString(pub))
			return
		}
		b, err := util.MarshalTrainingWheelsKey(priv, "", true)
		check(err)
		fmt.Println(string(b))
	},
}
