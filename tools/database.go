package tools

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"velo/db"
)

// RegisterDatabaseTools adds the builtin database tool set to the
// registry, each backed by one operation on the database collaborator.
func RegisterDatabaseTools(r *Registry, database *db.Database) error {
	entries := []*Tool{
		{
			Name:        "run_sql_query",
			Description: "Run a SQL statement against the connected database and return the result rows. Non-SELECT statements modify data and require user confirmation.",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"sql": map[string]any{
						"type":        "string",
						"description": "The SQL statement to run.",
					},
				},
				Required: []string{"sql"},
			},
			Mutating: func(args map[string]any) bool {
				sql, _ := args["sql"].(string)
				return !IsReadOnlySQL(sql)
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				sql, _ := args["sql"].(string)
				if IsReadOnlySQL(sql) {
					return database.Query(ctx, sql)
				}
				return database.Execute(ctx, sql)
			},
		},
		{
			Name:        "execute_ddl",
			Description: "Execute a DDL statement (CREATE, ALTER, DROP). Always requires user confirmation.",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"sql": map[string]any{
						"type":        "string",
						"description": "The DDL statement to execute.",
					},
				},
				Required: []string{"sql"},
			},
			Mutating: func(map[string]any) bool { return true },
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				sql, _ := args["sql"].(string)
				return database.Execute(ctx, sql)
			},
		},
		{
			Name:        "list_tables",
			Description: "List the tables and views in the connected database.",
			InputSchema: mcptypes.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				return database.ListTables(ctx)
			},
		},
		{
			Name:        "describe_table",
			Description: "Describe the columns of a table: names, types, nullability and primary keys.",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"table": map[string]any{
						"type":        "string",
						"description": "Name of the table to describe.",
					},
				},
				Required: []string{"table"},
			},
			Execute: func(ctx context.Context, args map[string]any) (any, error) {
				table, _ := args["table"].(string)
				return database.DescribeTable(ctx, table)
			},
		},
	}

	for _, t := range entries {
		if err := r.Register(t); err != nil {
			return fmt.Errorf("failed to register %s: %w", t.Name, err)
		}
	}
	return nil
}
