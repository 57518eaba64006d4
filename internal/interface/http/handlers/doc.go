// Package handlers contains gin middleware and health checks shared by the
// learnpulse HTTP API.
//
// # Health Checks
//
// Named checks run in parallel, each under its own timeout:
//
//	checker := handlers.NewCompositeHealthChecker("v0.1.0")
//	checker.AddCheck("postgres", handlers.NewPingCheck(pool))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
//	status := checker.Check(ctx)
//
// # Middleware
//
//	router.Use(
//	    handlers.Recovery(log),
//	    handlers.RequestID(),
//	    handlers.AccessLog(log),
//	    handlers.NewRateLimiter(20, 40).Middleware(),
//	    handlers.Observe(metrics),
//	)
package handlers
