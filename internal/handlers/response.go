package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"storelink/internal/apperr"
	"storelink/internal/config"
)

func jsonResp(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"content-type":                "application/json",
			"access-control-allow-origin": "*",
		},
		Body: string(b),
	}, nil
}

func errResp(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return jsonResp(status, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func redirect(location string) (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"location": location,
		},
	}, nil
}

// callbackDone answers a completed callback in the configured mode.
func callbackDone(mode config.ResponseMode, location string, payload map[string]any) (events.APIGatewayV2HTTPResponse, error) {
	if mode == config.ResponseJSON {
		payload["success"] = true
		return jsonResp(http.StatusOK, payload)
	}
	return redirect(location)
}

// errorResp converts any error into a response. Diagnostics (the raw
// upstream body or the wrapped cause) are only included when debug is set.
func errorResp(log *zap.Logger, debug bool, err error) (events.APIGatewayV2HTTPResponse, error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)

	msg := "internal error"
	detail := ""
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Message
		if debug {
			detail = ae.Detail
			if detail == "" && ae.Err != nil {
				detail = ae.Err.Error()
			}
		}
	}

	fields := []zap.Field{zap.String("kind", string(kind)), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request rejected", fields...)
	}
	if detail == "" {
		return errResp(status, msg)
	}
	return jsonResp(status, map[string]any{
		"success": false,
		"error":   msg,
		"detail":  detail,
	})
}
