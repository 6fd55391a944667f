package capabilities

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/mcp-example-server/pkg/datastore"
	mcperrors "github.com/ajitpratap0/mcp-example-server/pkg/errors"
	"github.com/ajitpratap0/mcp-example-server/pkg/logging"
	"github.com/ajitpratap0/mcp-example-server/pkg/protocol"
	"github.com/ajitpratap0/mcp-example-server/pkg/registry"
	"github.com/ajitpratap0/mcp-example-server/pkg/schema"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

func limitParam() schema.Param {
	return schema.Param{
		Name:        "limit",
		Type:        schema.TypeInteger,
		Description: "Maximum number of rows to return",
		Default:     defaultRowLimit,
		Minimum:     schema.Bound(1),
		Maximum:     schema.Bound(maxRowLimit),
	}
}

func mysqlQueryTool(deps Deps) registry.Tool {
	return registry.Tool{
		Name: "mysql-query",
		Metadata: registry.Metadata{
			Title:       "MySQL Query",
			Description: "Execute read-only MySQL queries and retrieve data",
		},
		Input: schema.Shape{
			{Name: "host", Type: schema.TypeString, Required: true, Description: "MySQL host (e.g., localhost)"},
			{Name: "port", Type: schema.TypeInteger, Description: "MySQL port", Default: 3306,
				Minimum: schema.Bound(1), Maximum: schema.Bound(65535)},
			{Name: "user", Type: schema.TypeString, Required: true, Description: "MySQL username"},
			{Name: "password", Type: schema.TypeString, Required: true, Description: "MySQL password"},
			{Name: "database", Type: schema.TypeString, Required: true, Description: "Database name"},
			{Name: "query", Type: schema.TypeString, Required: true, Description: "SQL query to execute"},
			limitParam(),
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
			target := datastore.MySQLTarget(
				args.String("host"),
				args.Int("port"),
				args.String("user"),
				args.String("password"),
				args.String("database"),
			)
			return runQuery(ctx, deps, target, args.String("query"), args.Int("limit"))
		},
	}
}

func sqliteQueryTool(deps Deps) registry.Tool {
	return registry.Tool{
		Name: "sqlite-query",
		Metadata: registry.Metadata{
			Title:       "SQLite Query",
			Description: "Execute read-only SQLite queries, or create the sample database",
		},
		Input: schema.Shape{
			{Name: "database", Type: schema.TypeString, Required: true, Description: "SQLite database file"},
			{Name: "query", Type: schema.TypeString, Description: "SQL query to execute"},
			{Name: "action", Type: schema.TypeString, Description: "query runs the query, init creates the sample tables",
				Default: "query", Enum: []string{"query", "init"}},
			limitParam(),
		},
		Handler: func(ctx context.Context, args schema.Args) (*protocol.CallToolResult, error) {
			path, err := resolveSQLitePath(deps.SQLiteBaseDir, args.String("database"))
			if err != nil {
				return nil, err
			}

			switch action := args.String("action"); action {
			case "init":
				users, err := datastore.InitSample(ctx, path)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					logging.FromContext(ctx).WithError(err).Error("Sample database init failed", logging.String("database", path))
					return registry.ErrorResult(datastore.SafeMessage(err)), nil
				}
				return registry.TextResult(fmt.Sprintf("Sample database initialized at %s with %d users", args.String("database"), users)), nil
			case "query":
				if strings.TrimSpace(args.String("query")) == "" {
					return nil, mcperrors.MissingParameter("query")
				}
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					return registry.ErrorResultf("Error: database %s does not exist, run action init first", args.String("database")), nil
				}
				return runQuery(ctx, deps, datastore.SQLiteTarget(path), args.String("query"), args.Int("limit"))
			default:
				return nil, fmt.Errorf("unsupported action %q", action)
			}
		},
	}
}

// runQuery gates query through the policy, then runs it on a connection
// owned by this call alone
func runQuery(ctx context.Context, deps Deps, target datastore.Target, query string, limit int) (*protocol.CallToolResult, error) {
	logger := logging.FromContext(ctx).WithFields(logging.String("target", target.Name))

	checked, err := deps.Policy.Check(target.Driver, query, limit)
	if err != nil {
		logger.Info("Query rejected", logging.String("reason", err.Error()))
		return registry.ErrorResult("Error: " + err.Error()), nil
	}

	conn, err := deps.Opener.Open(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.WithError(err).Error("Data store connection failed")
		return registry.ErrorResult(datastore.SafeMessage(err)), nil
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.WithError(err).Warn("Closing data store connection failed")
		}
	}()

	var result *datastore.Result
	err = logging.Track(ctx, logger.WithFields(logging.String("query", checked)), "sql_query", func(ctx context.Context) error {
		var qerr error
		result, qerr = conn.Query(ctx, checked, deps.Policy.RowCap(limit))
		return qerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return registry.ErrorResult(datastore.SafeMessage(err)), nil
	}

	text, err := result.JSON()
	if err != nil {
		return nil, err
	}
	return registry.TextResult(text), nil
}

// resolveSQLitePath maps the database argument to a file path. With a base
// directory set, only local paths inside it are accepted.
func resolveSQLitePath(baseDir, name string) (string, error) {
	if baseDir == "" {
		return name, nil
	}
	if !filepath.IsLocal(name) {
		return "", mcperrors.InvalidParameter("database", mcperrors.ConstraintFormat,
			"must be a relative path inside the configured database directory")
	}
	return filepath.Join(baseDir, name), nil
}
