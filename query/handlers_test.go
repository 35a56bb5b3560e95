package query

import (
	"context"
	"reflect"
	"testing"
)

type fakeReaders struct {
	tokenFn     func(ctx context.Context, userID, providerID string) (string, error)
	connectedFn func(ctx context.Context, userID string) ([]string, error)
	hasFn       func(ctx context.Context, userID, providerID string) (bool, error)
	supported   []string
}

func (r *fakeReaders) GetValidToken(ctx context.Context, userID, providerID string) (string, error) {
	return r.tokenFn(ctx, userID, providerID)
}

func (r *fakeReaders) Connected(ctx context.Context, userID string) ([]string, error) {
	return r.connectedFn(ctx, userID)
}

func (r *fakeReaders) Has(ctx context.Context, userID, providerID string) (bool, error) {
	return r.hasFn(ctx, userID, providerID)
}

func (r *fakeReaders) ListSupported() []string {
	return r.supported
}

func TestGetValidTokenQuery(t *testing.T) {
	readers := &fakeReaders{
		tokenFn: func(_ context.Context, userID, providerID string) (string, error) {
			if userID != "u1" || providerID != "github" {
				t.Fatalf("unexpected args %q %q", userID, providerID)
			}
			return "at-1", nil
		},
	}

	token, err := NewGetValidTokenQuery(readers).Query(context.Background(), GetValidTokenMessage{UserID: "u1", ProviderID: "github"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if token != "at-1" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestGetValidTokenQueryRequiresReader(t *testing.T) {
	var q *GetValidTokenQuery
	if _, err := q.Query(context.Background(), GetValidTokenMessage{UserID: "u1", ProviderID: "github"}); err == nil {
		t.Fatal("expected dependency error")
	}
}

func TestConnectedQuery(t *testing.T) {
	readers := &fakeReaders{
		connectedFn: func(_ context.Context, userID string) ([]string, error) {
			return []string{"github", "gmail"}, nil
		},
	}

	ids, err := NewConnectedQuery(readers).Query(context.Background(), ConnectedMessage{UserID: "u1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"github", "gmail"}) {
		t.Fatalf("unexpected connections %v", ids)
	}
}

func TestHasCredentialQuery(t *testing.T) {
	readers := &fakeReaders{
		hasFn: func(_ context.Context, userID, providerID string) (bool, error) {
			return providerID == "github", nil
		},
	}

	q := NewHasCredentialQuery(readers)
	ok, err := q.Query(context.Background(), HasCredentialMessage{UserID: "u1", ProviderID: "github"})
	if err != nil || !ok {
		t.Fatalf("expected (true, nil), got (%v, %v)", ok, err)
	}
	ok, err = q.Query(context.Background(), HasCredentialMessage{UserID: "u1", ProviderID: "notion"})
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestListSupportedQuery(t *testing.T) {
	readers := &fakeReaders{supported: []string{"github", "gmail", "notion"}}
	ids, err := NewListSupportedQuery(readers).Query(context.Background(), ListSupportedMessage{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("unexpected catalog %v", ids)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"token ok", GetValidTokenMessage{UserID: "u1", ProviderID: "github"}, false},
		{"token missing user", GetValidTokenMessage{ProviderID: "github"}, true},
		{"connected ok", ConnectedMessage{UserID: "u1"}, false},
		{"connected missing user", ConnectedMessage{}, true},
		{"has missing provider", HasCredentialMessage{UserID: "u1"}, true},
		{"list supported", ListSupportedMessage{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
