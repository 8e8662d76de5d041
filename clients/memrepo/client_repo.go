package memrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-auth/clients"
)

var _ clients.Repo = (*ClientRepo)(nil)

// ClientRepo keeps registered clients in memory.
type ClientRepo struct {
	clients   map[string]*clients.Client
	clientIDs map[string]string // client_id to id
	lock      sync.RWMutex
}

func NewClientRepo(seed ...*clients.Client) *ClientRepo {
	r := &ClientRepo{
		clients:   make(map[string]*clients.Client),
		clientIDs: make(map[string]string),
	}
	for _, c := range seed {
		_ = r.Upsert(context.Background(), c)
	}
	return r
}

func (r *ClientRepo) Upsert(_ context.Context, client *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	if existing, ok := r.clients[client.ID]; ok {
		delete(r.clientIDs, existing.ClientID)
	}
	r.clients[client.ID] = client
	r.clientIDs[client.ClientID] = client.ID
	return nil
}

func (r *ClientRepo) Delete(_ context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if client, ok := r.clients[id]; ok {
		delete(r.clientIDs, client.ClientID)
		delete(r.clients, id)
	}
	return nil
}

func (r *ClientRepo) FindByID(_ context.Context, id string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	client, ok := r.clients[id]
	if !ok {
		return nil, clients.ErrClientNotFound
	}
	return client, nil
}

func (r *ClientRepo) FindByClientID(ctx context.Context, clientID string) (*clients.Client, error) {
	r.lock.RLock()
	id, ok := r.clientIDs[clientID]
	r.lock.RUnlock()
	if !ok {
		return nil, clients.ErrClientNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *ClientRepo) List(_ context.Context, offset, limit int) ([]*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*clients.Client, 0, len(r.clients))
	for _, v := range r.clients {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].ClientID < list[j].ClientID
	})

	if offset >= len(list) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}
