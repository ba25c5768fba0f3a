package repository

import (
	"encoding/json"
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/zkkeyless/go-keyless-prover/global"
	"github.com/zkkeyless/go-keyless-prover/types"
)

func handleError(resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	var body map[string]interface{}
	if uErr := json.Unmarshal(resp.Body(), &body); uErr == nil {
		if errDesc, ok := body["error"]; ok {
			return fmt.Errorf("%w: status %d: %v", types.ErrJwksFetch, resp.StatusCode(), errDesc)
		}
	} else {
		level.Debug(global.Logger).Log("msg", "failed to unmarshal error response", "err", uErr)
	}
	return fmt.Errorf("%w: status %d", types.ErrJwksFetch, resp.StatusCode())
}
