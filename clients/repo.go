package clients

import "context"

// Directory resolves registered clients. Implementations return ErrClientNotFound when the
// client does not exist.
type Directory interface {
	FindByID(ctx context.Context, id string) (*Client, error)
	FindByClientID(ctx context.Context, clientID string) (*Client, error)
}

// Repo is a Directory that can also be administered.
type Repo interface {
	Directory
	Upsert(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*Client, error)
}
