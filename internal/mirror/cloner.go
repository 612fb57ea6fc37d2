// Package mirror performs the schema mirroring operation: a copy-on-write
// clone of a source schema under a new name, with pre/post verification.
package mirror

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"schemamirror/internal/catalog"
	"schemamirror/internal/qualify"
)

// Clone statuses. Partial Success means the clone command succeeded but
// table enumeration saw differing counts, which can lag right after a clone.
const (
	StatusSuccess = "Success"
	StatusPartial = "Partial Success"
)

// Summary is the row-of-one tabular result of a clone operation
type Summary struct {
	Database     string
	SourceSchema string
	CloneSchema  string
	SourceTables int
	ClonedTables int
	Status       string
}

// Cloner executes schema clone operations through the catalog client
type Cloner struct {
	client *catalog.Client
}

// New creates a new Cloner
func New(client *catalog.Client) *Cloner {
	return &Cloner{client: client}
}

// Clone snapshots sourceSchema into targetSchema within database. It returns
// ok, a human-readable status message, and a summary (nil when no clone was
// attempted or verification failed). Failures never propagate as panics or
// raw errors; they collapse into (false, "Clone failed: ...", nil).
func (c *Cloner) Clone(ctx context.Context, database, sourceSchema, targetSchema string) (bool, string, *Summary) {
	if !qualify.ValidIdentifier(targetSchema) {
		return false, fmt.Sprintf("Clone failed: invalid target schema name %q", targetSchema), nil
	}

	exists, err := c.client.SchemaExists(ctx, database, sourceSchema)
	if err != nil {
		return false, fmt.Sprintf("Clone failed: %v", err), nil
	}
	if !exists {
		return false, fmt.Sprintf("Source schema %s.%s doesn't exist", database, sourceSchema), nil
	}

	if err := c.client.CloneSchema(ctx, database, sourceSchema, targetSchema); err != nil {
		return false, fmt.Sprintf("Clone failed: %v", err), nil
	}

	created, err := c.client.SchemaExists(ctx, database, targetSchema)
	if err != nil {
		return false, fmt.Sprintf("Clone failed: %v", err), nil
	}
	if !created {
		return false, "Clone failed - target schema not created", nil
	}

	sourceTables, err := c.client.TableNames(ctx, database, sourceSchema)
	if err != nil {
		return false, fmt.Sprintf("Clone failed: %v", err), nil
	}
	cloneTables, err := c.client.TableNames(ctx, database, targetSchema)
	if err != nil {
		return false, fmt.Sprintf("Clone failed: %v", err), nil
	}

	status := StatusSuccess
	if len(sourceTables) != len(cloneTables) {
		status = StatusPartial
		logrus.WithFields(logrus.Fields{
			"source_tables": len(sourceTables),
			"clone_tables":  len(cloneTables),
		}).Warn("clone table counts differ")
	}

	summary := &Summary{
		Database:     database,
		SourceSchema: sourceSchema,
		CloneSchema:  targetSchema,
		SourceTables: len(sourceTables),
		ClonedTables: len(cloneTables),
		Status:       status,
	}

	message := fmt.Sprintf("Successfully mirrored schema %s.%s to %s.%s",
		database, sourceSchema, database, targetSchema)
	return true, message, summary
}
