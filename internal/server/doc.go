// Package server wires the service together and owns its lifecycle.
//
// Startup order:
//  1. Load configuration from environment
//  2. Initialize the logger and metrics
//  3. Load the seed document and build the data-source provider
//  4. Start the profile tracker over the provider's event stream
//  5. Create the session manager with the predictor circuit breaker
//  6. Register HTTP routes, middleware and the WebSocket stream
//  7. Serve until the context is cancelled, then shut down gracefully
package server
