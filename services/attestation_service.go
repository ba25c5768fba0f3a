package services

import (
	"crypto/ed25519"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zkkeyless/go-keyless-prover/types"
	"golang.org/x/crypto/sha3"
)

// domain separator prefixed (hashed) to every attested message
const attestationDomain = "KEYLESS::Groth16ProofAndStatement"

type provenStatement struct {
	Proof            types.Groth16Proof `cbor:"1,keyasint"`
	PublicInputsHash []byte             `cbor:"2,keyasint"`
}

// AttestationService co-signs proofs with the training wheels key.
// The verification key is not part of the signed message.
type AttestationService struct {
	priv    ed25519.PrivateKey
	encMode cbor.EncMode
}

func NewAttestationService(priv ed25519.PrivateKey) (*AttestationService, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return &AttestationService{priv: priv, encMode: em}, nil
}

func (as *AttestationService) PublicKey() ed25519.PublicKey {
	return as.priv.Public().(ed25519.PublicKey)
}

// Sign returns the serialized training wheels signature over (proof, publicInputsHash)
func (as *AttestationService) Sign(proof *types.Groth16Proof, publicInputsHash types.PoseidonHash) (types.HexBytes, error) {
	msg, err := attestationMessage(as.encMode, proof, publicInputsHash)
	if err != nil {
		return nil, err
	}
	sig := ed25519.Sign(as.priv, msg)
	return types.EncodeEd25519EphemeralSignature(sig)
}

// Verify checks the training wheels signature of a success response against pub
func (as *AttestationService) Verify(resp *types.SuccessResponse, pub ed25519.PublicKey) error {
	return VerifyAttestation(as.encMode, resp, pub)
}

// VerifyAttestation is Verify without a signing key, for clients of the service
func VerifyAttestation(encMode cbor.EncMode, resp *types.SuccessResponse, pub ed25519.PublicKey) error {
	if encMode == nil {
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}
		encMode = em
	}
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: bad public key length %d", types.ErrSignature, len(pub))
	}
	sig, err := types.DecodeEd25519EphemeralSignature(resp.TrainingWheelsSignature)
	if err != nil {
		return err
	}
	msg, err := attestationMessage(encMode, &resp.Proof, resp.PublicInputsHash)
	if err != nil {
		return err
	}
	if !ed25519.Verify(pub, msg, sig) {
		return types.ErrSignature
	}
	return nil
}

func attestationMessage(em cbor.EncMode, proof *types.Groth16Proof, publicInputsHash types.PoseidonHash) ([]byte, error) {
	body, err := em.Marshal(provenStatement{Proof: *proof, PublicInputsHash: publicInputsHash[:]})
	if err != nil {
		return nil, err
	}
	prefix := sha3.Sum256([]byte(attestationDomain))
	return append(prefix[:], body...), nil
}
