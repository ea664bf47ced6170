// Package mongotest hands tests a throwaway MongoDB database.
package mongotest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	driver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/accountbilling/pkg/mongo"
)

// EnvURL names the variable holding the test server's connection string.
const EnvURL = "MONGODB_TEST_URL"

// Database creates a uniquely named database on the server at MONGODB_TEST_URL
// and drops it when the test ends. Without the variable the test is skipped.
func Database(t testing.TB) *driver.Database {
	t.Helper()

	url := os.Getenv(EnvURL)
	if url == "" {
		t.Skip(EnvURL + " is not set, no MongoDB instance to test against")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, mongo.Config{
		ConnectionURL:  url,
		ConnectTimeout: 5 * time.Second,
		MaxPoolSize:    32,
		RetryAttempts:  1,
	})
	require.NoError(t, err)

	db := client.Database("test_" + uuid.New().String()[:8] + "_" + time.Now().Format("150405"))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}
