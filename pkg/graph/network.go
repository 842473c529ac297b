package graph

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/freightly/manifest/pkg/models"
	"github.com/freightly/manifest/pkg/tracing"
)

// Network maintains the dispatch graph: Load nodes connected to their Driver
// via ASSIGNED_TO and their Carrier via BOOKED_BY. Dispatch tooling reads the
// projection to walk a driver's schedule.
type Network struct {
	client *Client
	logger ectologger.Logger
}

// NewNetwork creates a new dispatch network projection
func NewNetwork(client *Client, logger ectologger.Logger) *Network {
	return &Network{
		client: client,
		logger: logger,
	}
}

// DriverLoad is one load on a driver's schedule as read from the graph
type DriverLoad struct {
	LoadID       string     `json:"load_id"`
	LoadNumber   *string    `json:"load_number,omitempty"`
	CarrierID    *string    `json:"carrier_id,omitempty"`
	PickupDate   *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate *time.Time `json:"delivery_date,omitempty"`
}

// UpsertLoad merges the load node and rewires its assignment edges. Detached
// drivers and carriers keep their nodes; only the edges move.
func (n *Network) UpsertLoad(ctx context.Context, load *models.Load) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Network.UpsertLoad")
	defer span.End()

	params := map[string]any{
		"tenant_id": load.TenantID,
		"load_id":   load.ID,
	}

	cypher := `
		MERGE (l:Load {id: $load_id, tenant_id: $tenant_id})
		SET l.load_number = $load_number,
			l.pickup_date = $pickup_date,
			l.delivery_date = $delivery_date,
			l.cancelled = $cancelled
		WITH l
		OPTIONAL MATCH (l)-[ad:ASSIGNED_TO]->(:Driver)
		DELETE ad
		WITH l
		OPTIONAL MATCH (l)-[bb:BOOKED_BY]->(:Carrier)
		DELETE bb
	`
	params["load_number"] = strOrNil(load.LoadNumber)
	params["pickup_date"] = timeOrNil(load.PickupDate)
	params["delivery_date"] = timeOrNil(load.DeliveryDate)
	params["cancelled"] = load.Cancelled

	if load.DriverID != nil {
		cypher += `
		WITH l
		MERGE (d:Driver {id: $driver_id, tenant_id: $tenant_id})
		MERGE (l)-[:ASSIGNED_TO]->(d)
		`
		params["driver_id"] = *load.DriverID
	}

	if load.CarrierID != nil {
		cypher += `
		WITH l
		MERGE (c:Carrier {id: $carrier_id, tenant_id: $tenant_id})
		MERGE (l)-[:BOOKED_BY]->(c)
		`
		params["carrier_id"] = *load.CarrierID
	}

	_, err := n.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, params)
	})
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": load.ID}).Error("Failed to upsert load in graph")
		return err
	}

	return nil
}

// RemoveLoad detaches and deletes the load node
func (n *Network) RemoveLoad(ctx context.Context, tenantID string, loadID string) error {
	ctx, span := tracing.StartSpan(ctx, "graph.Network.RemoveLoad")
	defer span.End()

	cypher := `
		MATCH (l:Load {id: $load_id, tenant_id: $tenant_id})
		DETACH DELETE l
	`

	_, err := n.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, cypher, map[string]any{"load_id": loadID, "tenant_id": tenantID})
	})
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"load_id": loadID}).Error("Failed to remove load from graph")
		return err
	}

	return nil
}

// DriverLoads reads a driver's schedule from the projection, pickup order
func (n *Network) DriverLoads(ctx context.Context, tenantID string, driverID string) ([]DriverLoad, error) {
	ctx, span := tracing.StartSpan(ctx, "graph.Network.DriverLoads")
	defer span.End()

	cypher := `
		MATCH (l:Load)-[:ASSIGNED_TO]->(d:Driver {id: $driver_id, tenant_id: $tenant_id})
		WHERE l.cancelled = false
		OPTIONAL MATCH (l)-[:BOOKED_BY]->(c:Carrier)
		RETURN l.id AS load_id, l.load_number AS load_number, c.id AS carrier_id,
			l.pickup_date AS pickup_date, l.delivery_date AS delivery_date
		ORDER BY l.pickup_date
	`

	result, err := n.client.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"driver_id": driverID, "tenant_id": tenantID})
		if err != nil {
			return nil, err
		}

		var out []DriverLoad
		for res.Next(ctx) {
			record := res.Record()
			dl := DriverLoad{}
			if v, ok := record.Get("load_id"); ok {
				if s, ok := v.(string); ok {
					dl.LoadID = s
				}
			}
			if v, ok := record.Get("load_number"); ok {
				if s, ok := v.(string); ok {
					dl.LoadNumber = &s
				}
			}
			if v, ok := record.Get("carrier_id"); ok {
				if s, ok := v.(string); ok {
					dl.CarrierID = &s
				}
			}
			if v, ok := record.Get("pickup_date"); ok {
				if t, ok := v.(time.Time); ok {
					dl.PickupDate = &t
				}
			}
			if v, ok := record.Get("delivery_date"); ok {
				if t, ok := v.(time.Time); ok {
					dl.DeliveryDate = &t
				}
			}
			out = append(out, dl)
		}
		return out, res.Err()
	})
	if err != nil {
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"driver_id": driverID}).Error("Failed to read driver loads from graph")
		return nil, err
	}

	loads, _ := result.([]DriverLoad)
	return loads, nil
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
