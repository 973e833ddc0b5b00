// Package weaviate provides a client wrapper for the vector store. It
// handles chunk upserts, deletion propagation by back-reference, and
// similarity search, with support for multiple Weaviate server versions.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	weaviatemodels "github.com/weaviate/weaviate/entities/models"
)

// Chunk property names in the vector store schema.
const (
	propContent  = "content"
	propIdentity = "identity"
	propEntryID  = "knowledgeEntryId"
	propMeta     = "meta"
)

// ServerVersion holds parsed Weaviate version info.
type ServerVersion struct {
	Version string // e.g., "1.25.0"
	Major   int
	Minor   int
	Patch   int
}

// parseVersion parses a version string like "1.25.0" into ServerVersion.
func parseVersion(version string) (*ServerVersion, error) {
	re := regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)
	matches := re.FindStringSubmatch(version)
	if len(matches) < 4 {
		return nil, fmt.Errorf("invalid version format: %s", version)
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])
	patch, _ := strconv.Atoi(matches[3])

	return &ServerVersion{
		Version: version,
		Major:   major,
		Minor:   minor,
		Patch:   patch,
	}, nil
}

// Client wraps the Weaviate client with kbsync-specific functionality.
// The upsert strategy is fixed at construction: native PUT-style upsert
// when the server supports it, delete-then-insert otherwise. Capabilities
// are never probed per call.
type Client struct {
	client       *weaviate.Client
	url          string
	nativeUpsert bool
}

// NewClient creates a new vector store client.
func NewClient(url string, nativeUpsert bool) (*Client, error) {
	cfg := weaviate.Config{
		Host:   url,
		Scheme: "http",
	}

	// Handle URL parsing
	if len(url) > 7 && url[:7] == "http://" {
		cfg.Host = url[7:]
		cfg.Scheme = "http"
	} else if len(url) > 8 && url[:8] == "https://" {
		cfg.Host = url[8:]
		cfg.Scheme = "https"
	}

	client, err := weaviate.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Weaviate client: %w", err)
	}

	return &Client{
		client:       client,
		url:          url,
		nativeUpsert: nativeUpsert,
	}, nil
}

// Ping checks if Weaviate is reachable.
func (c *Client) Ping(ctx context.Context) error {
	live, err := c.client.Misc().LiveChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to Weaviate: %w", err)
	}
	if !live {
		return fmt.Errorf("weaviate is not live")
	}
	return nil
}

// GetServerVersion fetches and parses the Weaviate server version.
func (c *Client) GetServerVersion(ctx context.Context) (*ServerVersion, error) {
	meta, err := c.client.Misc().MetaGetter().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get server metadata: %w", err)
	}
	return parseVersion(meta.Version)
}

// SupportsNativeUpsert reports the upsert strategy fixed at construction.
func (c *Client) SupportsNativeUpsert() bool {
	return c.nativeUpsert
}

// EnsureChunkClass creates the chunk class if it does not exist. Vectors
// are provided externally, so the class vectorizer is "none".
func (c *Client) EnsureChunkClass(ctx context.Context, className string) error {
	schema, err := c.client.Schema().Getter().Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema: %w", err)
	}

	for _, class := range schema.Classes {
		if class.Class == className {
			return nil
		}
	}

	classObj := &weaviatemodels.Class{
		Class:      className,
		Vectorizer: "none",
		Properties: []*weaviatemodels.Property{
			{Name: propContent, DataType: []string{"text"}},
			{Name: propIdentity, DataType: []string{"text"}},
			{Name: propEntryID, DataType: []string{"text"}},
			{Name: propMeta, DataType: []string{"text"}},
		},
	}

	return c.client.Schema().ClassCreator().WithClass(classObj).Do(ctx)
}

// UpsertChunk writes a chunk. With native upsert the write is a single
// PUT-style replacement; otherwise the chunk is deleted first and
// recreated, which is all-or-nothing per chunk either way.
func (c *Client) UpsertChunk(ctx context.Context, className string, chunk *models.VectorChunk) error {
	if !c.nativeUpsert {
		// Delete is a no-op when the object does not exist yet.
		_ = c.client.Data().Deleter().
			WithClassName(className).
			WithID(chunk.ID).
			Do(ctx)
		return c.insertChunk(ctx, className, chunk)
	}

	props, err := chunkProperties(chunk)
	if err != nil {
		return err
	}

	updater := c.client.Data().Updater().
		WithClassName(className).
		WithID(chunk.ID).
		WithProperties(props)
	if len(chunk.Embedding) > 0 {
		updater = updater.WithVector(chunk.Embedding)
	}

	if err := updater.Do(ctx); err != nil {
		// PUT against a missing ID fails on some server versions; fall
		// back to a plain insert for that case only.
		return c.insertChunk(ctx, className, chunk)
	}
	return nil
}

func (c *Client) insertChunk(ctx context.Context, className string, chunk *models.VectorChunk) error {
	props, err := chunkProperties(chunk)
	if err != nil {
		return err
	}

	creator := c.client.Data().Creator().
		WithClassName(className).
		WithID(chunk.ID).
		WithProperties(props)
	if len(chunk.Embedding) > 0 {
		creator = creator.WithVector(chunk.Embedding)
	}

	if _, err := creator.Do(ctx); err != nil {
		return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// DeleteChunk deletes a single chunk by ID.
func (c *Client) DeleteChunk(ctx context.Context, className, chunkID string) error {
	return c.client.Data().Deleter().
		WithClassName(className).
		WithID(chunkID).
		Do(ctx)
}

// DeleteByIdentity removes every chunk belonging to a source identity.
// Used for deletion propagation when a record vanishes from the source.
func (c *Client) DeleteByIdentity(ctx context.Context, className, identity string) (int, error) {
	where := filters.Where().
		WithPath([]string{propIdentity}).
		WithOperator(filters.Equal).
		WithValueText(identity)

	resp, err := c.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks for %s: %w", identity, err)
	}

	if resp != nil && resp.Results != nil {
		return int(resp.Results.Successful), nil
	}
	return 0, nil
}

// ChunksByIdentity fetches all chunks for a source identity.
func (c *Client) ChunksByIdentity(ctx context.Context, className, identity string) ([]*models.VectorChunk, error) {
	where := filters.Where().
		WithPath([]string{propIdentity}).
		WithOperator(filters.Equal).
		WithValueText(identity)

	fields := chunkFields()
	result, err := c.client.GraphQL().Get().
		WithClassName(className).
		WithWhere(where).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunks for %s: %w", identity, err)
	}

	return parseChunks(result.Data, className)
}

// Search performs similarity search over chunks.
func (c *Client) Search(ctx context.Context, className string, vector []float32, limit int) ([]*models.VectorChunk, error) {
	nearVector := c.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := chunkFields()
	result, err := c.client.GraphQL().Get().
		WithClassName(className).
		WithNearVector(nearVector).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	return parseChunks(result.Data, className)
}

func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: propContent},
		{Name: propIdentity},
		{Name: propEntryID},
		{Name: propMeta},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}
}

// chunkProperties flattens a chunk into Weaviate properties. The full
// metadata map travels as a JSON column; identity and back-reference are
// promoted to real properties so they are filterable.
func chunkProperties(chunk *models.VectorChunk) (map[string]interface{}, error) {
	metaJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize chunk metadata: %w", err)
	}

	identity, _ := chunk.Metadata.GetString(models.MetaKeyIdentity)
	return map[string]interface{}{
		propContent:  chunk.Content,
		propIdentity: identity,
		propEntryID:  chunk.EntryID(),
		propMeta:     string(metaJSON),
	}, nil
}

// parseChunks converts a GraphQL Get response into chunks.
func parseChunks(data map[string]interface{}, className string) ([]*models.VectorChunk, error) {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	rows, ok := get[className].([]interface{})
	if !ok {
		return nil, nil
	}

	chunks := make([]*models.VectorChunk, 0, len(rows))
	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		chunk := &models.VectorChunk{Metadata: models.Metadata{}}
		if content, ok := props[propContent].(string); ok {
			chunk.Content = content
		}
		if metaRaw, ok := props[propMeta].(string); ok && metaRaw != "" {
			var md models.Metadata
			if err := json.Unmarshal([]byte(metaRaw), &md); err == nil {
				chunk.Metadata = md
			}
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if id, ok := additional["id"].(string); ok {
				chunk.ID = id
			}
		}

		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
