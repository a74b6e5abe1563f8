// Package service maps each backend resource onto typed calls over the
// shared API client. Services hold no state.
package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopadmin/internal/apiclient"
)

// API is the subset of *apiclient.Client the services call.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

func pageQuery(page, limit int) url.Values {
	return url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
}

func resourcePath(collection, id string) string {
	return collection + "/" + url.PathEscape(id)
}

// missing reports a success response that lacks the expected envelope
// field. It is classified like any other undecodable body.
func missing(method, path, field string) error {
	return &apiclient.Error{
		Kind:   apiclient.KindUnknown,
		Method: method,
		Path:   path,
		Err:    fmt.Errorf("response is missing %q", field),
	}
}

func undecodable(method, path string, err error) error {
	return &apiclient.Error{
		Kind:   apiclient.KindUnknown,
		Method: method,
		Path:   path,
		Err:    fmt.Errorf("failed to decode response: %w", err),
	}
}
