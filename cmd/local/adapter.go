package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
)

type lambdaHandler func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// toEvent builds the API Gateway HTTP API (v2) event the deployed functions
// receive: lower-cased header names and comma-joined repeated values.
func toEvent(r *http.Request, body []byte) events.APIGatewayV2HTTPRequest {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ",")
	}
	query := map[string]string{}
	for k, v := range r.URL.Query() {
		query[k] = strings.Join(v, ",")
	}
	var cookies []string
	for _, c := range r.Cookies() {
		cookies = append(cookies, c.Name+"="+c.Value)
	}

	req := events.APIGatewayV2HTTPRequest{
		Version:               "2.0",
		RouteKey:              r.Method + " " + r.URL.Path,
		RawPath:               r.URL.Path,
		RawQueryString:        r.URL.RawQuery,
		Cookies:               cookies,
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	}
	req.RequestContext.HTTP.Method = r.Method
	req.RequestContext.HTTP.Path = r.URL.Path
	req.RequestContext.HTTP.Protocol = r.Proto
	req.RequestContext.HTTP.SourceIP = r.RemoteAddr
	req.RequestContext.HTTP.UserAgent = r.UserAgent()
	req.RequestContext.TimeEpoch = time.Now().UnixMilli()
	return req
}

func adapt(h lambdaHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
			return
		}

		resp, err := h(c.Request.Context(), toEvent(c.Request, body))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
			return
		}

		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		for _, ck := range resp.Cookies {
			c.Writer.Header().Add("Set-Cookie", ck)
		}

		out := []byte(resp.Body)
		if resp.IsBase64Encoded {
			if out, err = base64.StdEncoding.DecodeString(resp.Body); err != nil {
				c.Status(http.StatusInternalServerError)
				return
			}
		}
		c.Status(resp.StatusCode)
		_, _ = c.Writer.Write(out)
	}
}
