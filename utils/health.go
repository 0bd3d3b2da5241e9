package utils

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthStatus is the latest probe of the billing stores: the Mongo ledger
// and the decision/auth caches.
type HealthStatus struct {
	Ledger    bool      `json:"ledger"`
	Caches    []bool    `json:"caches"`
	CheckedAt time.Time `json:"checkedAt"`
}

var (
	currentHealth HealthStatus
	healthMu      sync.RWMutex
)

// GetHealthStatus returns the latest stored snapshot.
func GetHealthStatus() HealthStatus {
	healthMu.RLock()
	defer healthMu.RUnlock()
	return currentHealth
}

// StartHealthMonitor pings the ledger and caches once a minute and keeps the
// result in memory for the health endpoint.
func StartHealthMonitor(ledger *mongo.Client, caches []*redis.Client) {
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()

		ctx := context.Background()

		for range ticker.C {
			cacheHealth := make([]bool, 0, len(caches))
			for _, client := range caches {
				cacheHealth = append(cacheHealth, client.Ping(ctx).Err() == nil)
			}

			healthMu.Lock()
			currentHealth = HealthStatus{
				Ledger:    ledger.Ping(ctx, nil) == nil,
				Caches:    cacheHealth,
				CheckedAt: time.Now(),
			}
			healthMu.Unlock()
		}
	}()
}
