package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"reflect"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"storelink/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateParams turns the first failed rule into a validation error naming
// the parameter.
func validateParams(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return apperr.Validation("missing " + fe.Field())
		}
		return apperr.Validation("invalid " + fe.Field())
	}
	return apperr.Validation(err.Error())
}

func method(req events.APIGatewayV2HTTPRequest) string {
	return strings.ToUpper(req.RequestContext.HTTP.Method)
}

func allowMethods(req events.APIGatewayV2HTTPRequest, allowed ...string) error {
	m := method(req)
	for _, a := range allowed {
		if m == a {
			return nil
		}
	}
	return apperr.MethodNotAllowed()
}

func header(req events.APIGatewayV2HTTPRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// requestParams merges query string parameters with body parameters. The
// body may be JSON or form encoded; query values win on conflict.
func requestParams(req events.APIGatewayV2HTTPRequest) (map[string]string, error) {
	out, err := bodyParams(req)
	if err != nil {
		return nil, err
	}
	for k, v := range req.QueryStringParameters {
		if strings.TrimSpace(v) != "" || out[k] == "" {
			out[k] = v
		}
	}
	for k, v := range out {
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

// bodyParams reads parameters from the request body alone.
func bodyParams(req events.APIGatewayV2HTTPRequest) (map[string]string, error) {
	out := map[string]string{}
	body, err := rawBody(req)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return out, nil
	}
	bp, err := parseBody(header(req, "content-type"), body)
	if err != nil {
		return nil, err
	}
	for k, v := range bp {
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func rawBody(req events.APIGatewayV2HTTPRequest) (string, error) {
	if !req.IsBase64Encoded {
		return req.Body, nil
	}
	b, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return "", apperr.Validation("malformed request body")
	}
	return string(b), nil
}

func parseBody(contentType, body string) (map[string]string, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	trimmed := strings.TrimSpace(body)

	if mt == "application/x-www-form-urlencoded" || (mt != "application/json" && !strings.HasPrefix(trimmed, "{")) {
		vals, err := url.ParseQuery(trimmed)
		if err != nil {
			return nil, apperr.Validation("malformed form body")
		}
		out := make(map[string]string, len(vals))
		for k := range vals {
			out[k] = vals.Get(k)
		}
		return out, nil
	}

	// Numbers stay as their literal text; float64 would mangle large ids.
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, apperr.Validation("malformed JSON body")
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch n := v.(type) {
		case nil, map[string]any, []any:
			continue
		case json.Number:
			out[k] = n.String()
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("invalid %s", k))
		}
		out[k] = s
	}
	return out, nil
}
