// Package gormrepo stores registered clients in Postgres through gorm.
package gormrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/social-auth/clients"
	"github.com/jrsteele09/social-auth/internal/utils"
	"github.com/jrsteele09/social-auth/oauth2"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ clients.Repo = (*ClientRepo)(nil)

type clientModel struct {
	ID                   string    `gorm:"column:id;primaryKey"`
	ClientID             string    `gorm:"column:client_id;uniqueIndex"`
	Type                 string    `gorm:"column:client_type"`
	Description          string    `gorm:"column:description"`
	SecretHash           string    `gorm:"column:secret_hash"`
	AuthMethod           string    `gorm:"column:auth_method"`
	GrantTypes           string    `gorm:"column:grant_types"`
	RedirectURIs         string    `gorm:"column:redirect_uris"`
	Scopes               string    `gorm:"column:scopes"`
	AuthorizationCodeTTL int64     `gorm:"column:authorization_code_ttl_seconds"`
	AccessTokenTTL       int64     `gorm:"column:access_token_ttl_seconds"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
}

func (clientModel) TableName() string {
	return "registered_clients"
}

// ClientRepo is a clients.Repo backed by a registered_clients table.
type ClientRepo struct {
	db *gorm.DB
}

func NewClientRepo(db *gorm.DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// Connect opens a Postgres connection, pings it and migrates the registered_clients table.
func Connect(ctx context.Context, dsn string) (*ClientRepo, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open gorm postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "resolve postgres sql db handle")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, pkgerrors.Wrap(err, "ping postgres")
	}
	if err := db.WithContext(ctx).AutoMigrate(&clientModel{}); err != nil {
		return nil, pkgerrors.Wrap(err, "migrate registered_clients")
	}
	return NewClientRepo(db), nil
}

func (r *ClientRepo) Upsert(ctx context.Context, client *clients.Client) error {
	row := clientModelFromEntity(client)
	row.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return logError("clients_repo_upsert_failed", err, client.ClientID)
	}
	return nil
}

func (r *ClientRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&clientModel{}).Error; err != nil {
		return logError("clients_repo_delete_failed", err, id)
	}
	return nil
}

func (r *ClientRepo) FindByID(ctx context.Context, id string) (*clients.Client, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ClientRepo) FindByClientID(ctx context.Context, clientID string) (*clients.Client, error) {
	return r.first(ctx, "client_id = ?", clientID)
}

func (r *ClientRepo) List(ctx context.Context, offset, limit int) ([]*clients.Client, error) {
	tx := r.db.WithContext(ctx).Order("client_id ASC").Offset(offset)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	var rows []clientModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, logError("clients_repo_list_failed", err, "")
	}
	list := make([]*clients.Client, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.toEntity())
	}
	return list, nil
}

func (r *ClientRepo) first(ctx context.Context, query string, value string) (*clients.Client, error) {
	var row clientModel
	err := r.db.WithContext(ctx).Where(query, strings.TrimSpace(value)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, clients.ErrClientNotFound
		}
		return nil, logError("clients_repo_find_failed", err, value)
	}
	return row.toEntity(), nil
}

func clientModelFromEntity(c *clients.Client) clientModel {
	grantTypes := make([]string, 0, len(c.GrantTypes))
	for _, g := range c.GrantTypes {
		grantTypes = append(grantTypes, string(g))
	}
	return clientModel{
		ID:                   c.ID,
		ClientID:             c.ClientID,
		Type:                 string(c.Type),
		Description:          c.Description,
		SecretHash:           c.SecretHash,
		AuthMethod:           string(c.AuthMethod),
		GrantTypes:           strings.Join(grantTypes, " "),
		RedirectURIs:         strings.Join(c.RedirectURIs, " "),
		Scopes:               strings.Join(c.Scopes, " "),
		AuthorizationCodeTTL: int64(c.TokenSettings.AuthorizationCodeTTL / time.Second),
		AccessTokenTTL:       int64(c.TokenSettings.AccessTokenTTL / time.Second),
	}
}

func (m clientModel) toEntity() *clients.Client {
	var grantTypes []oauth2.GrantType
	for _, g := range utils.SplitNonEmpty(m.GrantTypes, " ") {
		grantTypes = append(grantTypes, oauth2.GrantType(g))
	}
	return &clients.Client{
		ID:           m.ID,
		ClientID:     m.ClientID,
		Type:         clients.ClientType(m.Type),
		Description:  m.Description,
		SecretHash:   m.SecretHash,
		AuthMethod:   clients.AuthMethod(m.AuthMethod),
		GrantTypes:   grantTypes,
		RedirectURIs: utils.SplitNonEmpty(m.RedirectURIs, " "),
		Scopes:       utils.SplitNonEmpty(m.Scopes, " "),
		TokenSettings: clients.TokenSettings{
			AuthorizationCodeTTL: time.Duration(m.AuthorizationCodeTTL) * time.Second,
			AccessTokenTTL:       time.Duration(m.AccessTokenTTL) * time.Second,
		},
	}
}

func logError(event string, err error, key string) error {
	log.Error().Err(err).Str("client", key).Msg(event)
	return pkgerrors.Wrap(err, event)
}
