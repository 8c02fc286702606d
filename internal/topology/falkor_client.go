package topology

import (
	"context"
	"fmt"
	"time"

	"github.com/FalkorDB/falkordb-go/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// FalkorClientConfig configures a FalkorClient.
type FalkorClientConfig struct {
	Host         string
	Port         int
	Password     string
	GraphName    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	// EntityCacheSize bounds the entity-by-id lookup cache; 0 disables
	// caching.
	EntityCacheSize int
}

// DefaultFalkorClientConfig returns sane defaults, matching the shape
// of a typical FalkorDB deployment.
func DefaultFalkorClientConfig() FalkorClientConfig {
	return FalkorClientConfig{
		Host:            "localhost",
		Port:            6379,
		GraphName:       "topology",
		DialTimeout:     10 * time.Second,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		PoolSize:        10,
		EntityCacheSize: 256,
	}
}

// FalkorClient implements Client against a FalkorDB graph holding
// timestamped TopoNode/TopoEdge snapshots, each node/edge tagged with
// a `snapshot_ts` property.
type FalkorClient struct {
	cfg   FalkorClientConfig
	db    *falkordb.FalkorDB
	graph *falkordb.Graph

	entityCache *lru.Cache[string, models.TopoNode]
}

// NewFalkorClient constructs a FalkorClient without connecting.
func NewFalkorClient(cfg FalkorClientConfig) (*FalkorClient, error) {
	c := &FalkorClient{cfg: cfg}
	if cfg.EntityCacheSize > 0 {
		cache, err := lru.New[string, models.TopoNode](cfg.EntityCacheSize)
		if err != nil {
			return nil, fmt.Errorf("topology: build entity cache: %w", err)
		}
		c.entityCache = cache
	}
	return c, nil
}

// Connect establishes the FalkorDB connection and selects the graph.
func (c *FalkorClient) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	db, err := falkordb.FalkorDBNew(&falkordb.ConnectionOption{
		Addr:         addr,
		Password:     c.cfg.Password,
		DialTimeout:  c.cfg.DialTimeout,
		ReadTimeout:  c.cfg.ReadTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
		PoolSize:     c.cfg.PoolSize,
	})
	if err != nil {
		return infererr.New(infererr.DB, "topology.Connect", "connect to falkordb", err)
	}
	c.db = db
	c.graph = db.SelectGraph(c.cfg.GraphName)
	return nil
}

// Close releases the underlying connection.
func (c *FalkorClient) Close() error {
	if c.db == nil || c.db.Conn == nil {
		return nil
	}
	return c.db.Conn.Close()
}

// RecentTS finds the largest snapshot_ts <= tSec across TopoNode
// vertices and enforces toleratedBias.
func (c *FalkorClient) RecentTS(ctx context.Context, tSec float64, toleratedBias float64) (float64, error) {
	result, err := c.graph.Query(
		`MATCH (n) WHERE n.snapshot_ts <= $t RETURN max(n.snapshot_ts) AS ts`,
		map[string]interface{}{"t": tSec}, nil)
	if err != nil {
		return 0, infererr.New(infererr.DB, "topology.RecentTS", "query recent snapshot", err)
	}
	if !result.Next() {
		return 0, infererr.New(infererr.DB, "topology.RecentTS", "no topology snapshot exists", nil)
	}
	record := result.Record()
	values := record.Values()
	if len(values) == 0 || values[0] == nil {
		return 0, infererr.New(infererr.DB, "topology.RecentTS", "no topology snapshot exists", nil)
	}
	ts, ok := asFloat(values[0])
	if !ok {
		return 0, infererr.New(infererr.DB, "topology.RecentTS", "unexpected snapshot_ts type", nil)
	}
	if tSec-ts > toleratedBias {
		return 0, infererr.New(infererr.DB, "topology.RecentTS",
			fmt.Sprintf("nearest snapshot %v exceeds tolerated bias from %v", ts, tSec), nil)
	}
	return ts, nil
}

// EntityByID returns the unique node matching entityID at ts.
func (c *FalkorClient) EntityByID(ctx context.Context, entityID string, ts float64) (models.TopoNode, error) {
	cacheKey := fmt.Sprintf("%s@%v", entityID, ts)
	if c.entityCache != nil {
		if cached, ok := c.entityCache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	result, err := c.graph.Query(
		`MATCH (n {entity_id: $eid, snapshot_ts: $ts}) RETURN n`,
		map[string]interface{}{"eid": entityID, "ts": ts}, nil)
	if err != nil {
		return models.TopoNode{}, infererr.New(infererr.DB, "topology.EntityByID", "query entity", err)
	}

	var matches []models.TopoNode
	for result.Next() {
		values := result.Record().Values()
		if len(values) == 0 {
			continue
		}
		node, err := nodeFromValue(values[0])
		if err != nil {
			return models.TopoNode{}, infererr.New(infererr.DB, "topology.EntityByID", "parse entity node", err)
		}
		matches = append(matches, node)
	}
	if len(matches) != 1 {
		return models.TopoNode{}, infererr.New(infererr.DB, "topology.EntityByID",
			fmt.Sprintf("expected exactly one match for entity %q, got %d", entityID, len(matches)), nil)
	}
	if c.entityCache != nil {
		c.entityCache.Add(cacheKey, matches[0])
	}
	return matches[0], nil
}

// HostTopo traverses belongs_to/runs_on edges outward from machineID's
// host entity, up to depth hops, restricted to the same machine_id.
func (c *FalkorClient) HostTopo(ctx context.Context, machineID string, ts float64, depth int) (*models.HostTopo, error) {
	query := fmt.Sprintf(
		`MATCH (h {entity_type: 'host', machine_id: $mid, snapshot_ts: $ts})
		 MATCH p = (h)-[r:belongs_to|runs_on*0..%d]-(n {machine_id: $mid, snapshot_ts: $ts})
		 RETURN nodes(p), relationships(p)`, depth)
	result, err := c.graph.Query(query, map[string]interface{}{"mid": machineID, "ts": ts}, nil)
	if err != nil {
		return nil, infererr.New(infererr.DB, "topology.HostTopo", "query host subgraph", err)
	}

	nodes := map[string]*models.TopoNode{}
	edges := map[string]*models.TopoEdge{}
	for result.Next() {
		values := result.Record().Values()
		if len(values) < 2 {
			continue
		}
		pathNodes, err := nodesFromValue(values[0])
		if err != nil {
			return nil, infererr.New(infererr.DB, "topology.HostTopo", "parse path nodes", err)
		}
		for i := range pathNodes {
			n := pathNodes[i]
			nodes[n.ID] = &n
		}
		pathEdges, err := edgesFromValue(values[1])
		if err != nil {
			return nil, infererr.New(infererr.DB, "topology.HostTopo", "parse path edges", err)
		}
		for i := range pathEdges {
			e := pathEdges[i]
			edges[e.ID] = &e
		}
	}
	if len(nodes) == 0 {
		return nil, infererr.New(infererr.DB, "topology.HostTopo",
			fmt.Sprintf("no host entity for machine_id %q", machineID), nil)
	}
	return models.NewHostTopo(machineID, nodes, edges), nil
}

// CrossHostEdges returns every edgeType edge at ts whose endpoints
// disagree on machine_id. A missing edge label returns an empty slice.
func (c *FalkorClient) CrossHostEdges(ctx context.Context, edgeType models.RelationType, ts float64) ([]models.TopoEdge, error) {
	query := fmt.Sprintf(
		`MATCH (a {snapshot_ts: $ts})-[r:%s {snapshot_ts: $ts}]->(b {snapshot_ts: $ts})
		 WHERE a.machine_id <> b.machine_id
		 RETURN a, r, b`, string(edgeType))
	result, err := c.graph.Query(query, map[string]interface{}{"ts": ts}, nil)
	if err != nil {
		// A query against a relationship type with no rows ever created
		// is a valid empty result in FalkorDB, not an error; only a
		// genuine execution failure reaches here.
		return nil, infererr.New(infererr.DB, "topology.CrossHostEdges", "query cross-host edges", err)
	}

	var out []models.TopoEdge
	for result.Next() {
		values := result.Record().Values()
		if len(values) < 3 {
			continue
		}
		from, err := nodeFromValue(values[0])
		if err != nil {
			return nil, infererr.New(infererr.DB, "topology.CrossHostEdges", "parse edge endpoint", err)
		}
		to, err := nodeFromValue(values[2])
		if err != nil {
			return nil, infererr.New(infererr.DB, "topology.CrossHostEdges", "parse edge endpoint", err)
		}
		edge, err := edgeFromValue(values[1])
		if err != nil {
			return nil, infererr.New(infererr.DB, "topology.CrossHostEdges", "parse edge", err)
		}
		edge.FromID = from.ID
		edge.ToID = to.ID
		edge.FromNode = &from
		edge.ToNode = &to
		out = append(out, edge)
	}
	return out, nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func nodeFromValue(v interface{}) (models.TopoNode, error) {
	var fn falkordb.Node
	switch n := v.(type) {
	case falkordb.Node:
		fn = n
	case *falkordb.Node:
		fn = *n
	default:
		return models.TopoNode{}, fmt.Errorf("unexpected node result type %T", v)
	}
	return topoNodeFromProperties(fmt.Sprint(fn.ID), fn.Properties), nil
}

func nodesFromValue(v interface{}) ([]models.TopoNode, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected nodes() result type %T", v)
	}
	out := make([]models.TopoNode, 0, len(items))
	for _, item := range items {
		n, err := nodeFromValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func edgeFromValue(v interface{}) (models.TopoEdge, error) {
	var fe falkordb.Edge
	switch e := v.(type) {
	case falkordb.Edge:
		fe = e
	case *falkordb.Edge:
		fe = *e
	default:
		return models.TopoEdge{}, fmt.Errorf("unexpected edge result type %T", v)
	}
	return models.TopoEdge{
		ID:   fmt.Sprint(fe.ID),
		Type: models.RelationType(fe.Relation),
	}, nil
}

func edgesFromValue(v interface{}) ([]models.TopoEdge, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected relationships() result type %T", v)
	}
	out := make([]models.TopoEdge, 0, len(items))
	for _, item := range items {
		e, err := edgeFromValue(item)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func topoNodeFromProperties(id string, props map[string]interface{}) models.TopoNode {
	node := models.TopoNode{ID: id, RawData: map[string]string{}}
	if v, ok := props["entity_id"].(string); ok {
		node.EntityID = v
	}
	if v, ok := props["entity_type"].(string); ok {
		node.EntityType = models.EntityType(v)
	}
	if v, ok := props["machine_id"].(string); ok {
		node.MachineID = v
	}
	if ts, ok := asFloat(props["timestamp"]); ok {
		node.Timestamp = int64(ts)
	}
	for k, val := range props {
		if s, ok := val.(string); ok {
			node.RawData[k] = s
		}
	}
	return node
}
