package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shelfsync/internal/catalogrpc"
	"github.com/dmitrijs2005/shelfsync/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errNoUser = status.Error(codes.Unauthenticated, "unauthenticated")

func (s *GRPCServer) Pull(ctx context.Context, req *catalogrpc.PullRequest) (*catalogrpc.PullResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, errNoUser
	}

	rows, serverTime, err := s.catalog.Pull(ctx, userID, req.Collection, req.Since)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Debug(ctx, "pull", "user", userID, "collection", req.Collection, "rows", len(rows))
	return &catalogrpc.PullResponse{Rows: rows, ServerTime: serverTime}, nil
}

func (s *GRPCServer) Push(ctx context.Context, req *catalogrpc.PushRequest) (*catalogrpc.PushResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, errNoUser
	}

	row, err := s.catalog.Push(ctx, userID, req.Collection, req.Row)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return &catalogrpc.PushResponse{Row: row}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *catalogrpc.PingRequest) (*catalogrpc.PingResponse, error) {

	return &catalogrpc.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) WhoAmI(ctx context.Context, req *catalogrpc.WhoAmIRequest) (*catalogrpc.WhoAmIResponse, error) {

	userID, ok := userIDFromContext(ctx)
	if !ok {
		return nil, errNoUser
	}

	return &catalogrpc.WhoAmIResponse{UserID: userID}, nil
}

// toStatus maps service errors to gRPC status errors. Unexpected errors are
// logged and reported as Internal without detail.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrUnknownCollection):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrInvalidRow):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, "internal error")
}
