package graph

//go:generate mockgen -destination=../../mocks/mock_session_runner.go -package=mocks bidplus-harvester/internal/graph SessionRunner
//go:generate mockgen -destination=../../mocks/mock_driver_sessioner.go -package=mocks bidplus-harvester/internal/graph DriverSessioner

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// SessionRunner abstracts neo4j.SessionWithContext.
type SessionRunner interface {
	ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork, configurers ...func(*neo4j.TransactionConfig)) (any, error)
	Close(ctx context.Context) error
}

// DriverSessioner abstracts neo4j.DriverWithContext.
type DriverSessioner interface {
	NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner
	Close(ctx context.Context) error
}

type driverAdapter struct {
	driver neo4j.DriverWithContext
}

// NewDriver connects to Neo4j with basic auth and verifies connectivity.
func NewDriver(ctx context.Context, uri, user, password string) (DriverSessioner, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return &driverAdapter{driver: driver}, nil
}

func (d *driverAdapter) NewSession(ctx context.Context, config neo4j.SessionConfig) SessionRunner {
	return d.driver.NewSession(ctx, config)
}

func (d *driverAdapter) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}
