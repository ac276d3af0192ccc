package comments

import "context"

// Backend is the part of backend.Client the comment service writes through
type Backend interface {
	Post(ctx context.Context, target string, body, out any) error
	Patch(ctx context.Context, target string, body, out any) error
	Delete(ctx context.Context, target string, out any) error
}
