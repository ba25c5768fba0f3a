package types

// RequestInput is the body of a proof request
type RequestInput struct {
	JwtB64         string             `json:"jwt_b64" validate:"required"`
	Epk            EphemeralPublicKey `json:"epk"`
	EpkBlinder     FlexBytes          `json:"epk_blinder" validate:"required"`
	ExpDateSecs    uint64             `json:"exp_date_secs"`
	ExpHorizonSecs uint64             `json:"exp_horizon_secs"`
	Pepper         *Pepper            `json:"pepper" validate:"required"`
	UidKey         string             `json:"uid_key"`
	ExtraField     *string            `json:"extra_field,omitempty"`
	IdcAud         *string            `json:"idc_aud,omitempty"`
	SkipAudChecks  bool               `json:"skip_aud_checks,omitempty"`
}
