// Package http provides the HTTP handlers and middleware for the prompt
// queue admin API.
//
// The router exposes the following endpoints:
//   - POST /groups/{id}/queue: builds the group's initial fifteen day queue.
//     An optional JSON body {"enable_nsfw":bool,"has_memorials":bool} asserts
//     eligibility flags ahead of the persisted state, covering content
//     created in the same request. Responds with the `queueResultDTO`
//     payload defined in queue_handler.go.
//   - POST /groups/{id}/queue/regenerate: rebuilds the forward window after a
//     preference change, preserving today and tomorrow. Responds with the
//     same payload; the `decision` field reports whether anything changed.
//   - GET /groups/{id}/slots: lists the group's scheduled slots, optionally
//     bounded with `from` and `to` date query parameters (2006-01-02).
//   - POST /daily-runs: executes the daily scheduling pass across all
//     groups. An optional JSON body {"date":"2006-01-02"} pins the pass to a
//     specific date; the default is today.
//
// Request/response DTOs live alongside their respective handlers so tests
// and documentation share the same ground truth.
package http
