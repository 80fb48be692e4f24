package service

import (
	"context"
	"fmt"
	"net/url"

	"github.com/boddenberg/logistica-web-go/internal/domain"
	"github.com/boddenberg/logistica-web-go/internal/port"
)

const (
	productsPath = "/logistics/produtos/"
	usersPath    = "/accounts/users/"
)

// Catalog reads the plain lists rendered by the rotas, produtos and
// usuarios pages.
type Catalog struct {
	backend port.Backend
}

// NewCatalog creates a Catalog.
func NewCatalog(backend port.Backend) *Catalog {
	return &Catalog{backend: backend}
}

// Routes lists up to 500 routes.
func (c *Catalog) Routes(ctx context.Context, sess *domain.Session) ([]domain.Route, error) {
	ctx, span := tracer.Start(ctx, "Catalog.Routes")
	defer span.End()

	var page domain.Page[domain.Route]
	if err := c.backend.GetJSON(ctx, sess, routesPath, url.Values{"limit": {routesLimit}}, &page); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return page.Results, nil
}

// Products lists registered products.
func (c *Catalog) Products(ctx context.Context, sess *domain.Session) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Catalog.Products")
	defer span.End()

	var page domain.Page[domain.Product]
	if err := c.backend.GetJSON(ctx, sess, productsPath, nil, &page); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return page.Results, nil
}

// Users lists staff accounts.
func (c *Catalog) Users(ctx context.Context, sess *domain.Session) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Catalog.Users")
	defer span.End()

	var page domain.Page[domain.User]
	if err := c.backend.GetJSON(ctx, sess, usersPath, nil, &page); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return page.Results, nil
}

// Me loads the signed-in user's own record.
func (c *Catalog) Me(ctx context.Context, sess *domain.Session) (*domain.Me, error) {
	ctx, span := tracer.Start(ctx, "Catalog.Me")
	defer span.End()

	var me domain.Me
	if err := c.backend.GetJSON(ctx, sess, mePath, nil, &me); err != nil {
		return nil, fmt.Errorf("load me: %w", err)
	}
	return &me, nil
}
