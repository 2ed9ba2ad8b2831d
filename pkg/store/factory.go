package store

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/barekit/cinerag/pkg/store/consts"
	"github.com/barekit/cinerag/pkg/store/inmemory"
	mongostore "github.com/barekit/cinerag/pkg/store/mongo"
	"github.com/barekit/cinerag/pkg/store/mssql"
	"github.com/barekit/cinerag/pkg/store/mysql"
	"github.com/barekit/cinerag/pkg/store/neo4j"
	"github.com/barekit/cinerag/pkg/store/postgres"
	"github.com/barekit/cinerag/pkg/store/qdrant"
	"github.com/barekit/cinerag/pkg/store/redis"
	"github.com/barekit/cinerag/pkg/store/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Type string

const (
	TypeSQLite   Type = "sqlite"
	TypePostgres Type = "postgres"
	TypeMySQL    Type = "mysql"
	TypeMSSQL    Type = "mssql"
	TypeRedis    Type = "redis"
	TypeNeo4j    Type = "neo4j"
	TypeMongo    Type = "mongo"
	TypeQdrant   Type = "qdrant"
	TypeInMemory Type = "inmemory"
)

// Config holds configuration for store backends.
type Config struct {
	Type             Type
	ConnectionString string
	Username         string
	Password         string
	DBName           string
}

// New opens the backend named by cfg.Type. An empty type means sqlite.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case TypeSQLite, "":
		return sqlite.New(cfg.ConnectionString)

	case TypePostgres:
		return postgres.New(cfg.ConnectionString)

	case TypeMySQL:
		return mysql.New(cfg.ConnectionString)

	case TypeMSSQL:
		return mssql.New(cfg.ConnectionString)

	case TypeRedis:
		opts, err := goredis.ParseURL(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		return redis.New(client), nil

	case TypeNeo4j:
		dbName := "neo4j"
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return neo4j.New(cfg.ConnectionString, cfg.Username, cfg.Password, dbName)

	case TypeMongo:
		opts := options.Client().ApplyURI(cfg.ConnectionString)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to ping mongo: %w", err)
		}
		dbName := consts.DefaultDBName
		if cfg.DBName != "" {
			dbName = cfg.DBName
		}
		return mongostore.New(client, dbName, consts.TableNameMovies), nil

	case TypeQdrant:
		host, portStr, err := net.SplitHostPort(cfg.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("failed to parse qdrant address: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse qdrant port: %w", err)
		}
		return qdrant.New(host, port, cfg.DBName)

	case TypeInMemory:
		return inmemory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
