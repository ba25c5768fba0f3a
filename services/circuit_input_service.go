package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/go-kit/log/level"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
	"github.com/zkkeyless/go-keyless-prover/util"
)

// CircuitInputService maps a VerifiedInput onto the keyless circuit's input signals
type CircuitInputService struct {
	circuitConfig    *types.CircuitConfig
	dangerousLogging bool
}

func NewCircuitInputService(circuitConfig *types.CircuitConfig, dangerousLogging bool) *CircuitInputService {
	return &CircuitInputService{circuitConfig: circuitConfig, dangerousLogging: dangerousLogging}
}

// Derive returns the padded signals and the public inputs hash the proof commits to
func (cs *CircuitInputService) Derive(ctx context.Context, input *types.VerifiedInput) (*types.CircuitInputSignals, types.PoseidonHash, error) {
	defer global.Span(ctx, "DeriveCircuitInputSignals")()

	signals, pih, err := cs.derive(input)
	if err != nil {
		if errors.Is(err, types.ErrInputTooLong) || errors.Is(err, types.ErrBadRequest) {
			return nil, types.PoseidonHash{}, types.Malformed(types.StepNone, err)
		}
		return nil, types.PoseidonHash{}, types.Internal(err)
	}
	if cs.dangerousLogging {
		if b, mErr := signals.MarshalJSON(); mErr == nil {
			level.Debug(global.LoggerFrom(ctx)).Log("msg", "circuit input signals", "signals", string(b))
		}
	}
	return signals, types.PoseidonHash(util.FrToLEBytes(pih)), nil
}

func (cs *CircuitInputService) maxLengths(names ...string) (map[string]int, error) {
	out := make(map[string]int, len(names))
	for _, n := range names {
		v, err := cs.circuitConfig.MaxLength(n)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func (cs *CircuitInputService) derive(input *types.VerifiedInput) (*types.CircuitInputSignals, fr.Element, error) {
	var zero fr.Element
	ml, err := cs.maxLengths("epk", "iss_value", "aud_value", "override_aud_value", "uid_key", "uid_value",
		"jwt_header_with_separator", "jwt_payload", "extra_field", "jwt_signature_limbs", "jwk_modulus_limbs")
	if err != nil {
		return nil, zero, err
	}
	jwt := input.Jwt
	payload := jwt.Payload.Raw
	signals := types.NewCircuitInputSignals()

	// unsigned jwt with sha2 padding
	headerWithSep := jwt.Parts.HeaderUndecodedWithDot()
	unsigned := []byte(jwt.Parts.UnsignedUndecoded())
	padded := sha2Pad(unsigned)
	jwtMax := ml["jwt_header_with_separator"] + ml["jwt_payload"]
	paddedJwt, err := util.PadBytes(padded, jwtMax)
	if err != nil {
		return nil, zero, fmt.Errorf("jwt: %w", err)
	}
	signals.AddBytes("jwt", paddedJwt).
		AddU64("jwt_num_sha2_blocks", uint64(len(padded)/64)).
		AddU64("jwt_header_with_separator_length", uint64(len(headerWithSep))).
		AddU64("jwt_payload_without_sha_padding_length", uint64(len(jwt.Parts.Payload)))
	headerHash, err := util.PadAndHashString(headerWithSep, ml["jwt_header_with_separator"])
	if err != nil {
		return nil, zero, fmt.Errorf("jwt header: %w", err)
	}

	// rsa signature and modulus
	sigLimbs, err := limbsFor(jwt.Signature, ml["jwt_signature_limbs"])
	if err != nil {
		return nil, zero, fmt.Errorf("signature: %w", err)
	}
	modLimbs, err := limbsFor(input.Jwk.Modulus, ml["jwk_modulus_limbs"])
	if err != nil {
		return nil, zero, fmt.Errorf("modulus: %w", err)
	}
	signals.AddLimbs("signature", sigLimbs).AddLimbs("pubkey_modulus", modLimbs)
	modulusHash, err := util.HashRSAModulus(input.Jwk.Modulus)
	if err != nil {
		return nil, zero, err
	}

	// ephemeral key commitment
	epkScalars, err := util.PadAndPackBytesToScalars(input.Epk.Bytes(), ml["epk"]*util.BytesPackedPerScalar)
	if err != nil {
		return nil, zero, fmt.Errorf("epk: %w", err)
	}
	epkLen := util.FrFromUint64(uint64(len(input.Epk.Bytes())))
	signals.AddFrs("epk", epkScalars).
		AddFr("epk_len", epkLen).
		AddFr("epk_blinder", input.EpkBlinderFr).
		AddU64("exp_date", input.ExpDateSecs).
		AddU64("exp_delta", input.ExpHorizonSecs).
		AddFr("pepper", input.PepperFr)

	// json fields the circuit opens inside the payload
	for _, f := range []struct {
		name   string
		signal string
	}{
		{"iss", "iss"},
		{"aud", "aud"},
		{"nonce", "nonce"},
		{"iat", "iat"},
		{input.UidKey, "uid"},
	} {
		field, fErr := findJsonField(payload, f.name)
		if fErr != nil {
			return nil, zero, fErr
		}
		addFieldPositions(signals, f.signal, field)
	}
	if input.UidKey == UidKeyEmail {
		ev, fErr := findJsonField(payload, "email_verified")
		if fErr != nil {
			return nil, zero, fErr
		}
		addFieldPositions(signals, "ev", ev)
	}

	// issuer
	iss := jwt.Payload.Iss
	paddedIss, err := util.PadBytes([]byte(iss), ml["iss_value"])
	if err != nil {
		return nil, zero, fmt.Errorf("iss: %w", err)
	}
	signals.AddBytes("iss_value", paddedIss)
	issHash, err := util.PadAndHashString(iss, ml["iss_value"])
	if err != nil {
		return nil, zero, err
	}

	// audience, possibly overridden by the recovery service's aud
	privateAud := jwt.Payload.Aud
	overrideAud := ""
	if input.UseAudOverride() {
		privateAud = *input.IdcAud
		overrideAud = jwt.Payload.Aud
	}
	paddedAud, err := util.PadBytes([]byte(privateAud), ml["aud_value"])
	if err != nil {
		return nil, zero, fmt.Errorf("aud: %w", err)
	}
	paddedOverride, err := util.PadBytes([]byte(overrideAud), ml["override_aud_value"])
	if err != nil {
		return nil, zero, fmt.Errorf("override aud: %w", err)
	}
	signals.AddBytes("private_aud_value", paddedAud).
		AddBytes("override_aud_value", paddedOverride).
		AddBool("use_aud_override", input.UseAudOverride())
	audHash, err := util.PadAndHashString(privateAud, ml["aud_value"])
	if err != nil {
		return nil, zero, err
	}
	overrideAudHash, err := util.PadAndHashString(overrideAud, ml["override_aud_value"])
	if err != nil {
		return nil, zero, err
	}

	// user id
	paddedUidKey, err := util.PadBytes([]byte(input.UidKey), ml["uid_key"])
	if err != nil {
		return nil, zero, fmt.Errorf("uid_key: %w", err)
	}
	paddedUidVal, err := util.PadBytes([]byte(input.UidVal), ml["uid_value"])
	if err != nil {
		return nil, zero, fmt.Errorf("uid_value: %w", err)
	}
	signals.AddBytes("uid_name", paddedUidKey).AddBytes("uid_value", paddedUidVal)
	uidKeyHash, err := util.PadAndHashString(input.UidKey, ml["uid_key"])
	if err != nil {
		return nil, zero, err
	}
	uidValHash, err := util.PadAndHashString(input.UidVal, ml["uid_value"])
	if err != nil {
		return nil, zero, err
	}

	// optional extra field, committed verbatim as it appears in the payload
	extraField := ""
	if input.UseExtraField() {
		extraField = *input.ExtraField
		idx := strings.Index(payload, extraField)
		if idx < 0 {
			return nil, zero, fmt.Errorf("%w: extra_field not found in jwt payload", types.ErrBadRequest)
		}
		signals.AddU64("extra_field_index", uint64(idx))
	} else {
		signals.AddU64("extra_field_index", 0)
	}
	paddedExtra, err := util.PadBytes([]byte(extraField), ml["extra_field"])
	if err != nil {
		return nil, zero, fmt.Errorf("extra_field: %w", err)
	}
	signals.AddBytes("extra_field", paddedExtra).
		AddU64("extra_field_length", uint64(len(extraField))).
		AddBool("use_extra_field", input.UseExtraField())
	extraHash, err := util.PadAndHashString(extraField, ml["extra_field"])
	if err != nil {
		return nil, zero, err
	}

	addrIdc, err := util.HashScalars([]fr.Element{input.PepperFr, audHash, uidValHash, uidKeyHash})
	if err != nil {
		return nil, zero, err
	}

	pihInputs := append([]fr.Element{}, epkScalars...)
	pihInputs = append(pihInputs,
		epkLen,
		addrIdc,
		util.FrFromUint64(input.ExpDateSecs),
		util.FrFromUint64(input.ExpHorizonSecs),
		issHash,
		boolFr(input.UseExtraField()),
		extraHash,
		headerHash,
		modulusHash,
		overrideAudHash,
		boolFr(input.UseAudOverride()),
	)
	if cs.circuitConfig.HasInputSkipAudChecks {
		signals.AddBool("skip_aud_checks", input.SkipAudChecks)
		pihInputs = append(pihInputs, boolFr(input.SkipAudChecks))
	}
	pih, err := util.HashScalars(pihInputs)
	if err != nil {
		return nil, zero, err
	}
	signals.AddFr("public_inputs_hash", pih)
	return signals, pih, nil
}

func boolFr(b bool) fr.Element {
	if b {
		return util.FrFromUint64(1)
	}
	return fr.Element{}
}

func limbsFor(n *big.Int, count int) ([]uint64, error) {
	if n == nil {
		return nil, errors.New("missing value")
	}
	limbs, err := util.BigIntTo64BitLimbs(n)
	if err != nil {
		return nil, err
	}
	return util.PadLimbs(limbs, count)
}

// sha2Pad appends the 0x80 marker, zeros and the big-endian bit length so the result is a whole number of 64 byte blocks
func sha2Pad(msg []byte) []byte {
	out := append([]byte{}, msg...)
	out = append(out, 0x80)
	for len(out)%64 != 56 {
		out = append(out, 0)
	}
	var l [8]byte
	binary.BigEndian.PutUint64(l[:], uint64(len(msg))*8)
	return append(out, l[:]...)
}

// jsonField locates `"name":value` inside the decoded payload
type jsonField struct {
	start      int
	length     int
	valueIndex int
	valueLen   int
	colonIndex int
}

func findJsonField(payload, name string) (*jsonField, error) {
	key := `"` + name + `"`
	start := strings.Index(payload, key)
	if start < 0 {
		return nil, fmt.Errorf("%w: field %q not found in jwt payload", types.ErrBadRequest, name)
	}
	i := skipSpace(payload, start+len(key))
	if i >= len(payload) || payload[i] != ':' {
		return nil, fmt.Errorf("%w: field %q is not followed by a colon", types.ErrBadRequest, name)
	}
	colon := i
	i = skipSpace(payload, i+1)
	valueStart := i
	if i < len(payload) && payload[i] == '"' {
		i++
		for i < len(payload) && payload[i] != '"' {
			if payload[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(payload) {
			return nil, fmt.Errorf("%w: unterminated value of %q", types.ErrBadRequest, name)
		}
		i++
	} else {
		for i < len(payload) && payload[i] != ',' && payload[i] != '}' {
			i++
		}
	}
	valueEnd := i
	for valueEnd > valueStart && isSpace(payload[valueEnd-1]) {
		valueEnd--
	}
	// the field's byte range includes its trailing delimiter
	end := skipSpace(payload, i)
	if end < len(payload) {
		end++
	}
	return &jsonField{
		start:      start,
		length:     end - start,
		valueIndex: valueStart,
		valueLen:   valueEnd - valueStart,
		colonIndex: colon - start,
	}, nil
}

func addFieldPositions(s *types.CircuitInputSignals, prefix string, f *jsonField) {
	s.AddU64(prefix+"_field_start", uint64(f.start)).
		AddU64(prefix+"_field_len", uint64(f.length)).
		AddU64(prefix+"_colon_index", uint64(f.colonIndex)).
		AddU64(prefix+"_value_index", uint64(f.valueIndex-f.start)).
		AddU64(prefix+"_value_len", uint64(f.valueLen))
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
