package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/Ventas-api/internal/application/checkout"
	"github.com/jhoicas/Ventas-api/internal/domain"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

var _ checkout.FinalizeGuard = (*RedisFinalizeGuard)(nil)

// releaseScript borra la llave solo si sigue siendo nuestra (el TTL pudo vencer y otra instancia tomarla).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisFinalizeGuard candado de finalización compartido entre instancias de la API (SET NX con TTL).
type RedisFinalizeGuard struct {
	client      *redis.Client
	serviceName string
	ttl         time.Duration
	log         *logger.Logger
}

// NewRedisFinalizeGuard construye el candado contra el Redis indicado.
func NewRedisFinalizeGuard(addr, password string, db int, serviceName string, ttl time.Duration, log *logger.Logger) *RedisFinalizeGuard {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if log == nil {
		log = logger.Nop()
	}
	return &RedisFinalizeGuard{client: client, serviceName: serviceName, ttl: ttl, log: log}
}

// Ping verifica la conexión.
func (g *RedisFinalizeGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close cierra el cliente.
func (g *RedisFinalizeGuard) Close() error {
	return g.client.Close()
}

// Key llave de la venta en Redis.
func (g *RedisFinalizeGuard) Key(saleID string) string {
	return fmt.Sprintf("%s:finalize:%s", g.serviceName, saleID)
}

func (g *RedisFinalizeGuard) Acquire(ctx context.Context, saleID string) (func(), error) {
	key := g.Key(saleID)
	token := uuid.New().String()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrFinalizeInProgress
	}
	return func() {
		// Contexto propio: el del request pudo cancelarse.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, g.client, []string{key}, token).Err(); err != nil {
			g.log.Warn().Err(err).Str("key", key).Msg("no se pudo liberar candado de finalización")
		}
	}, nil
}
