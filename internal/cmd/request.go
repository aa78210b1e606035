package cmd

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/antrian"
)

// addRequestFlags registers the flags shared by commands that build a
// request.
func addRequestFlags(c *cobra.Command) {
	c.Flags().StringP("method", "X", http.MethodGet, "HTTP method")
	c.Flags().StringArrayP("param", "p", nil, "query parameter as key=value (repeatable)")
	c.Flags().StringArrayP("header", "H", nil, "request header as \"Name: value\" (repeatable)")
	c.Flags().StringP("data", "d", "", "request body")
	c.Flags().Bool("no-cache", false, "bypass the response cache")
}

func requestFromFlags(c *cobra.Command, rawURL string) (*antrian.Request, error) {
	method, err := c.Flags().GetString("method")
	if err != nil {
		return nil, err
	}
	params, err := c.Flags().GetStringArray("param")
	if err != nil {
		return nil, err
	}
	headers, err := c.Flags().GetStringArray("header")
	if err != nil {
		return nil, err
	}
	data, err := c.Flags().GetString("data")
	if err != nil {
		return nil, err
	}
	noCache, err := c.Flags().GetBool("no-cache")
	if err != nil {
		return nil, err
	}

	req := &antrian.Request{
		Method:  strings.ToUpper(method),
		URL:     rawURL,
		NoCache: noCache,
	}
	if data != "" {
		req.Body = []byte(data)
	}

	if len(params) > 0 {
		req.Params = url.Values{}
		for _, p := range params {
			key, value, ok := strings.Cut(p, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid param %q: want key=value", p)
			}
			req.Params.Add(key, value)
		}
	}

	if len(headers) > 0 {
		req.Header = http.Header{}
		for _, h := range headers {
			name, value, ok := strings.Cut(h, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q: want \"Name: value\"", h)
			}
			req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
	}
	return req, nil
}
