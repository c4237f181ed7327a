// Package supabase holds the Supabase-backed implementations of the store
// interfaces: Postgres for pipeline state, PostgREST for telemetry rows and
// Storage for generated media.
package supabase

import (
	"fmt"

	"github.com/supabase-community/supabase-go"
)

type Client struct {
	Supabase *supabase.Client
}

func NewClient(url, key string) (*Client, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Client{Supabase: client}, nil
}
