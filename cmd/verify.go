package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zkkeyless/go-keyless-prover/services"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

var (
	verifyPublicKey string
	verifyVkPath    string
)

func init() {
	verifyCmd.Flags().StringVar(&verifyPublicKey, "public-key", "", "training wheels public key (hex or JWK file)")
	verifyCmd.Flags().StringVar(&verifyVkPath, "vk", "", "optional Groth16 verification_key.json to also verify the proof")
	rootCmd.AddCommand(verifyCmd)
}

// verifyCmd checks a saved prover response
var verifyCmd = &cobra.Command{
	Use:   "verify <response.json>",
	Short: "Verify the training wheels signature (and optionally the proof) of a prover response",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if verifyPublicKey == "" {
			check(errors.New("--public-key is required"))
		}
		body, err := os.ReadFile(args[0])
		check(err)
		parsed, err := types.UnmarshalProverServiceResponse(body)
		check(err)
		resp, ok := parsed.(types.SuccessResponse)
		if !ok {
			check(fmt.Errorf("response is an error: %s", parsed.(types.ErrorResponse).Message))
		}

		keyBytes := []byte(verifyPublicKey)
		if b, rErr := os.ReadFile(verifyPublicKey); rErr == nil {
			keyBytes = b
		}
		pub, err := util.ParseTrainingWheelsPublicKey(keyBytes)
		check(err)
		check(services.VerifyAttestation(nil, &resp, pub))
		fmt.Println("training wheels signature: OK")

		if verifyVkPath != "" {
			vk, err := util.LoadVerificationKey(verifyVkPath)
			check(err)
			pih := util.FrFromLEBytesModOrder(resp.PublicInputsHash[:])
			check(util.VerifyGroth16(vk, &resp.Proof, pih))
			fmt.Println("groth16 proof: OK")
		}
	},
}
