package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/shelfsync/internal/catalogrpc"
	"github.com/dmitrijs2005/shelfsync/internal/logging"
	"github.com/dmitrijs2005/shelfsync/internal/record"
	"google.golang.org/grpc"
)

// CatalogService is the domain service behind the gRPC handlers.
type CatalogService interface {
	Pull(ctx context.Context, userID, collection string, since time.Time) ([]record.Row, time.Time, error)
	Push(ctx context.Context, userID, collection string, row record.Row) (record.Row, error)
}

type GRPCServer struct {
	catalogrpc.UnimplementedCatalogServer
	address   string
	catalog   CatalogService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(a string, l logging.Logger, cs CatalogService, secretKey string) (*GRPCServer, error) {
	return &GRPCServer{
		address:   a,
		logger:    logging.OrNop(l).With("module", "grpc_server"),
		catalog:   cs,
		jwtSecret: []byte(secretKey),
	}, nil
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))

	catalogrpc.RegisterCatalogServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
