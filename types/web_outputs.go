package types

import (
	"encoding/json"
	"errors"
)

// ProverServiceResponse is either SuccessResponse or ErrorResponse
type ProverServiceResponse interface {
	isProverServiceResponse()
}

type SuccessResponse struct {
	Proof                   Groth16Proof `json:"proof"`
	PublicInputsHash        PoseidonHash `json:"public_inputs_hash"`
	TrainingWheelsSignature HexBytes     `json:"training_wheels_signature"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func (SuccessResponse) isProverServiceResponse() {}
func (ErrorResponse) isProverServiceResponse()   {}

type successBody SuccessResponse
type errorBody ErrorResponse

func (s SuccessResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]successBody{"Success": successBody(s)})
}

func (e ErrorResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]errorBody{"Error": errorBody(e)})
}

type taggedResponse struct {
	Success *successBody `json:"Success,omitempty"`
	Error   *errorBody   `json:"Error,omitempty"`
}

// UnmarshalProverServiceResponse decodes the tagged representation. Exactly one variant must be present.
func UnmarshalProverServiceResponse(data []byte) (ProverServiceResponse, error) {
	var t taggedResponse
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	switch {
	case t.Success != nil && t.Error == nil:
		return SuccessResponse(*t.Success), nil
	case t.Error != nil && t.Success == nil:
		return ErrorResponse(*t.Error), nil
	}
	return nil, errors.New("response must contain exactly one of Success or Error")
}
