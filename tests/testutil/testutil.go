// Package testutil provides common test utilities for the CNEC backend:
// SQLite-backed region stores, recording event handlers and HTTP helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ContextWithTimeout creates a context that is cancelled when the test ends
// or after timeout, whichever comes first.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
