// Package http serves the operational endpoints of the room engine.
//
// The router exposes:
//   - GET /healthz: runs every registered health check. 200 with
//     {"status":"ok","checks":{...}} when all pass, 503 otherwise.
//   - GET /metrics: Prometheus exposition of the default registry.
//   - GET /jobs: names of the registered lifecycle jobs.
//   - POST /jobs/{name}/run: runs a job now through the same lock as its cron
//     trigger. Responds with the `reportDTO` defined in jobs_handler.go, 404 for
//     an unknown job and 409 while another run holds the lock.
package http
