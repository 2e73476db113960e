// Package api handles incoming HTTP requests, request validation and response
// formatting. It adapts the entity and queue services to HTTP: users create
// and list dreams and manifestations, and the scheduler or an operator
// triggers queue processing cycles.
package api
