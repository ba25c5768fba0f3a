package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zkkeyless/go-keyless-prover/services"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

var (
	nonceExpDate       uint64
	nonceBlinder       string
	nonceCircuitConfig string
)

func init() {
	nonceCmd.Flags().Uint64Var(&nonceExpDate, "exp-date", 0, "ephemeral key expiry (unix seconds)")
	nonceCmd.Flags().StringVar(&nonceBlinder, "blinder", "", "ephemeral key blinder (hex or base64)")
	nonceCmd.Flags().StringVar(&nonceCircuitConfig, "circuit-config", "", "circuit_config.yml (default lengths if empty)")
	rootCmd.AddCommand(nonceCmd)
}

// nonceCmd computes the nonce an OIDC provider must embed for an ephemeral key
var nonceCmd = &cobra.Command{
	Use:   "nonce <epk hex>",
	Short: "Compute the keyless nonce for an ephemeral public key",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		epkBytes, err := hex.DecodeString(util.TrimHexPrefix(args[0]))
		check(err)
		epk, err := types.ParseEphemeralPublicKey(epkBytes)
		check(err)
		blinder, err := types.DecodeHexOrBase64(nonceBlinder)
		check(err)

		circuitConfig := util.DefaultCircuitConfig()
		if nonceCircuitConfig != "" {
			circuitConfig, err = util.LoadCircuitConfig(nonceCircuitConfig)
			check(err)
		}
		nonce, err := services.ComputeNonce(nonceExpDate, epk, util.FrFromLEBytesModOrder(blinder), circuitConfig)
		check(err)
		fmt.Println(util.FrToDecimal(nonce))
	},
}
