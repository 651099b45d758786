// Package api exposes the driver over HTTP: point reads and writes,
// scrapes, config store editing and a WebSocket stream of scrape results.
//
// Every point operation goes through agent.Execute, the same path MQTT
// commands take, so acks, telemetry and error codes agree whichever
// surface a caller uses.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// When security.jwt.secret is set, every route except /api/v1/health
// needs a bearer token whose role grants the route's permission.
package api
