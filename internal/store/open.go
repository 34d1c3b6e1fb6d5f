package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atmx/market-data/internal/config"
)

// Open connects to the backend cfg selects and prepares it for use.
// collections are the logical daily collections; both physical sources of
// each are indexed so either may be written. The returned close function
// releases the connection and is never nil.
func Open(ctx context.Context, cfg *config.Config, collections []string) (Store, func(), error) {
	switch cfg.Backend() {
	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() { client.Disconnect(context.Background()) }
		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("ping mongo: %w", err)
		}

		st := NewMongoStore(client.Database(cfg.Mongo.Database))
		physical := make([]string, 0, 2*len(collections))
		for _, c := range collections {
			physical = append(physical, PhysicalCollection(c, false), PhysicalCollection(c, true))
		}
		if err := st.EnsureIndexes(ctx, physical); err != nil {
			closeFn()
			return nil, nil, err
		}
		slog.Info("connected to MongoDB", "database", cfg.Mongo.Database)
		return st, closeFn, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		st := NewPostgresStore(pool)
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("connected to PostgreSQL")
		return st, pool.Close, nil

	case config.BackendRedis:
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("connected to Redis")
		return NewRedisStore(rdb), func() { rdb.Close() }, nil

	default:
		slog.Warn("no database configured, using in-memory store (data will not persist)")
		return NewMemoryStore(), func() {}, nil
	}
}
