package providers

import "time"

// shutdownTimeout bounds graceful shutdown of long-lived components
// (SSE drain, badger close, HTTP server).
const shutdownTimeout = 30 * time.Second
