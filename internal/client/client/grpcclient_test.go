package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/catalogrpc"
	"github.com/dmitrijs2005/shelfsync/internal/client/collection"
	"github.com/dmitrijs2005/shelfsync/internal/common"
	"github.com/dmitrijs2005/shelfsync/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// fakeCatalog records the access token of each call and answers from presets.
type fakeCatalog struct {
	catalogrpc.UnimplementedCatalogServer

	tokens   []string
	lastPull *catalogrpc.PullRequest
	lastPush *catalogrpc.PushRequest

	pullRows []record.Row
	err      error
	status   string
}

func (f *fakeCatalog) record(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(common.AccessTokenHeaderName)
	if len(vals) == 0 {
		f.tokens = append(f.tokens, "")
		return
	}
	f.tokens = append(f.tokens, vals[0])
}

func (f *fakeCatalog) Pull(ctx context.Context, in *catalogrpc.PullRequest) (*catalogrpc.PullResponse, error) {
	f.record(ctx)
	f.lastPull = in
	if f.err != nil {
		return nil, f.err
	}
	return &catalogrpc.PullResponse{Rows: f.pullRows}, nil
}

func (f *fakeCatalog) Push(ctx context.Context, in *catalogrpc.PushRequest) (*catalogrpc.PushResponse, error) {
	f.record(ctx)
	f.lastPush = in
	if f.err != nil {
		return nil, f.err
	}
	row := in.Row
	row.UpdatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &catalogrpc.PushResponse{Row: row}, nil
}

func (f *fakeCatalog) Ping(ctx context.Context, _ *catalogrpc.PingRequest) (*catalogrpc.PingResponse, error) {
	f.record(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &catalogrpc.PingResponse{Status: f.status}, nil
}

func (f *fakeCatalog) WhoAmI(ctx context.Context, _ *catalogrpc.WhoAmIRequest) (*catalogrpc.WhoAmIResponse, error) {
	f.record(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return &catalogrpc.WhoAmIResponse{UserID: "u1"}, nil
}

func newTestClient(t *testing.T, srv catalogrpc.CatalogServer) *GRPCClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	catalogrpc.RegisterCatalogServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := NewCatalogClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGRPCClient_TokenInjection(t *testing.T) {
	f := &fakeCatalog{status: "OK"}
	c := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	c.SetAccessToken("tok-1")
	id, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	outgoing := metadata.NewOutgoingContext(ctx, metadata.Pairs(common.AccessTokenHeaderName, "stale", "x-request-id", "r1"))
	_, err = c.Pull(outgoing, common.CollectionLists, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "tok-1", "tok-1"}, f.tokens)
}

func TestGRPCClient_PullPush(t *testing.T) {
	since := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	f := &fakeCatalog{pullRows: []record.Row{{ID: "a", UpdatedAt: since.Add(time.Hour), Title: "Alpha"}}}
	c := newTestClient(t, f)
	ctx := context.Background()

	rows, err := c.Pull(ctx, common.CollectionListings, since)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpha", rows[0].Title)
	assert.Equal(t, common.CollectionListings, f.lastPull.Collection)
	assert.True(t, f.lastPull.Since.Equal(since))

	got, err := c.Push(ctx, common.CollectionLists, record.Row{ID: "w1", Title: "Wishlist"})
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)
	assert.False(t, got.UpdatedAt.IsZero())
	assert.Equal(t, common.CollectionLists, f.lastPush.Collection)
}

func TestGRPCClient_Ping_BadStatus(t *testing.T) {
	c := newTestClient(t, &fakeCatalog{status: "DEGRADED"})
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestGRPCClient_MapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthenticated", status.Error(codes.Unauthenticated, "missing token"), ErrUnauthorized},
		{"permission denied", status.Error(codes.PermissionDenied, "no"), ErrUnauthorized},
		{"unavailable", status.Error(codes.Unavailable, "down"), ErrUnavailable},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), ErrUnavailable},
		{"not found", status.Error(codes.NotFound, "wat"), common.ErrUnknownCollection},
		{"invalid argument", status.Error(codes.InvalidArgument, "no id"), common.ErrInvalidRow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeCatalog{err: tt.err})
			_, err := c.Pull(context.Background(), "listings", time.Time{})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	c := &GRPCClient{}
	assert.NoError(t, c.mapError(nil))
	other := c.mapError(status.Error(codes.Internal, "boom"))
	assert.ErrorContains(t, other, "rpc error")
	assert.False(t, errors.Is(other, ErrUnavailable))
}

func TestSource_AdaptsCollection(t *testing.T) {
	f := &fakeCatalog{pullRows: []record.Row{{ID: "i1", Title: "Front"}}}
	c := newTestClient(t, f)

	var src collection.Source = NewSource(c, common.CollectionImages)
	var mut collection.Mutator = NewSource(c, common.CollectionImages)

	rows, err := src.Pull(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, common.CollectionImages, f.lastPull.Collection)

	_, err = mut.Push(context.Background(), record.Row{ID: "i2"})
	require.NoError(t, err)
	assert.Equal(t, common.CollectionImages, f.lastPush.Collection)
}
