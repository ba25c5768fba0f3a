package types

import "github.com/consensys/gnark-crypto/ecc/bn254/fr"

// VerifiedInput is a request that passed every training wheels check.
// Only the training wheels service constructs it.
type VerifiedInput struct {
	Jwt            *DecodedJWT
	Jwk            *IssuerKey
	Epk            EphemeralPublicKey
	EpkBlinderFr   fr.Element
	ExpDateSecs    uint64
	PepperFr       fr.Element
	UidKey         string
	UidVal         string
	ExtraField     *string
	ExpHorizonSecs uint64
	IdcAud         *string
	SkipAudChecks  bool
}

func (v *VerifiedInput) UseExtraField() bool {
	return v.ExtraField != nil
}

func (v *VerifiedInput) UseAudOverride() bool {
	return v.IdcAud != nil
}
