package query

import "context"

// TokenReader resolves a usable access token for a (user, provider) pair.
type TokenReader interface {
	GetValidToken(ctx context.Context, userID, providerID string) (string, error)
}

// ConnectionReader reports stored connections for a user.
type ConnectionReader interface {
	Connected(ctx context.Context, userID string) ([]string, error)
	Has(ctx context.Context, userID, providerID string) (bool, error)
}

// CatalogReader lists the provider catalog.
type CatalogReader interface {
	ListSupported() []string
}

type GetValidTokenQuery struct {
	reader TokenReader
}

func NewGetValidTokenQuery(reader TokenReader) *GetValidTokenQuery {
	return &GetValidTokenQuery{reader: reader}
}

func (q *GetValidTokenQuery) Query(ctx context.Context, msg GetValidTokenMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: token reader is required")
	}
	return q.reader.GetValidToken(ctx, msg.UserID, msg.ProviderID)
}

type ConnectedQuery struct {
	reader ConnectionReader
}

func NewConnectedQuery(reader ConnectionReader) *ConnectedQuery {
	return &ConnectedQuery{reader: reader}
}

func (q *ConnectedQuery) Query(ctx context.Context, msg ConnectedMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: connection reader is required")
	}
	return q.reader.Connected(ctx, msg.UserID)
}

type HasCredentialQuery struct {
	reader ConnectionReader
}

func NewHasCredentialQuery(reader ConnectionReader) *HasCredentialQuery {
	return &HasCredentialQuery{reader: reader}
}

func (q *HasCredentialQuery) Query(ctx context.Context, msg HasCredentialMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: connection reader is required")
	}
	return q.reader.Has(ctx, msg.UserID, msg.ProviderID)
}

type ListSupportedQuery struct {
	reader CatalogReader
}

func NewListSupportedQuery(reader CatalogReader) *ListSupportedQuery {
	return &ListSupportedQuery{reader: reader}
}

func (q *ListSupportedQuery) Query(_ context.Context, _ ListSupportedMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: catalog reader is required")
	}
	return q.reader.ListSupported(), nil
}
