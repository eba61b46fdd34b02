//go:build protogen

package directory

import (
	"context"
	"time"

	"github.com/glowdesk/glowdesk/libs/grpcx"
	directoryv1 "github.com/glowdesk/glowdesk/protos/gen/directory/v1"
	"github.com/glowdesk/glowdesk/services/scheduling-service/internal/scheduling"
)

type grpcProvider struct {
	client directoryv1.DirectoryServiceClient
}

func NewProvider(addr string) (Provider, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: directoryv1.NewDirectoryServiceClient(conn)}, nil
}

func (p *grpcProvider) ClientExists(ctx context.Context, id string) (bool, error) {
	resp, err := p.client.GetClient(ctx, &directoryv1.GetClientRequest{ClientId: id})
	if err != nil {
		return false, err
	}
	return resp.GetActive(), nil
}

func (p *grpcProvider) ProfessionalExists(ctx context.Context, id string) (bool, error) {
	resp, err := p.client.GetProfessional(ctx, &directoryv1.GetProfessionalRequest{ProfessionalId: id})
	if err != nil {
		return false, err
	}
	return resp.GetActive(), nil
}

func (p *grpcProvider) GetService(ctx context.Context, id string) (scheduling.CatalogService, bool, error) {
	resp, err := p.client.GetService(ctx, &directoryv1.GetServiceRequest{ServiceId: id})
	if err != nil {
		return scheduling.CatalogService{}, false, err
	}
	if resp.GetServiceId() == "" {
		return scheduling.CatalogService{}, false, nil
	}
	return scheduling.CatalogService{
		ID:              resp.GetServiceId(),
		Name:            resp.GetName(),
		DurationMinutes: int(resp.GetDurationMinutes()),
		Price:           resp.GetPrice(),
		Active:          resp.GetActive(),
	}, true, nil
}
