package communities

import "context"

// Backend is the part of backend.Client the resolver reads through
type Backend interface {
	Get(ctx context.Context, target string, out any) error
}
