// Package engine wires every berth subsystem together from a [berth.Config]
// and exposes the application-level API used by the HTTP surface, the MCP
// server and the CLI.
//
// Engine sits above all subsystem packages and below the application
// layer, so it is the only package that knows about every store backend,
// session provider and reasoner at once.
//
// # Building an Engine
//
//	cfg, err := berth.LoadConfig("")
//	eng, err := engine.Build(ctx, cfg,
//	    engine.WithLogger(logger),
//	    engine.WithExtension(myExtension),
//	)
//	defer eng.Close(ctx)
//
// # Answering queries
//
//	ans, err := eng.Answer(ctx, "Is MSDU1234567 available for pickup?")
//	fmt.Println(ans.Record.Message)
//
// # Tracking a container directly
//
//	res, err := eng.Track(ctx, "MSDU1234567", container.OpLocation)
//
// # Options
//
//   - [WithLogger] sets the logger shared by every subsystem
//   - [WithStore], [WithCache], [WithSessions], [WithReasoner] replace the
//     component the config would have built
//   - [WithExtension] registers a lifecycle extension
//   - [WithMiddleware] adds step-attempt middleware
//   - [WithTracerProvider], [WithMeterProvider] set OpenTelemetry providers
package engine
