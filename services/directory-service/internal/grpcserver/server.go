//go:build protogen

// Package grpcserver serves directory lookups over gRPC for services
// that need a synchronous fallback to their local reference caches.
package grpcserver

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"google.golang.org/grpc"

	directoryv1 "github.com/glowdesk/glowdesk/protos/gen/directory/v1"
	"github.com/glowdesk/glowdesk/services/directory-service/internal/storage"
)

type server struct {
	directoryv1.UnimplementedDirectoryServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	directoryv1.RegisterDirectoryServiceServer(grpcServer, &server{repo: repo})
}

func (s *server) GetClient(ctx context.Context, req *directoryv1.GetClientRequest) (*directoryv1.GetClientResponse, error) {
	c, err := s.repo.GetClient(ctx, req.GetClientId())
	if errors.Is(err, pgx.ErrNoRows) {
		return &directoryv1.GetClientResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &directoryv1.GetClientResponse{
		ClientId: c.ID,
		Name:     c.Name,
		Active:   c.Active,
	}, nil
}

func (s *server) GetProfessional(ctx context.Context, req *directoryv1.GetProfessionalRequest) (*directoryv1.GetProfessionalResponse, error) {
	pros, err := s.repo.ListProfessionals(ctx, 500)
	if err != nil {
		return nil, err
	}
	for _, p := range pros {
		if p.ID == req.GetProfessionalId() {
			return &directoryv1.GetProfessionalResponse{
				ProfessionalId: p.ID,
				Name:           p.Name,
				Active:         p.Active,
			}, nil
		}
	}
	return &directoryv1.GetProfessionalResponse{}, nil
}

func (s *server) GetService(ctx context.Context, req *directoryv1.GetServiceRequest) (*directoryv1.GetServiceResponse, error) {
	svc, err := s.repo.GetService(ctx, req.GetServiceId())
	if errors.Is(err, pgx.ErrNoRows) {
		return &directoryv1.GetServiceResponse{}, nil
	}
	if err != nil {
		return nil, err
	}
	return &directoryv1.GetServiceResponse{
		ServiceId:       svc.ID,
		Name:            svc.Name,
		DurationMinutes: int32(svc.DurationMinutes),
		Price:           svc.Price,
		Active:          svc.Active,
	}, nil
}
