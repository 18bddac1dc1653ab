// Package handler is the HTTP layer between the router and the services.
//
// Handlers receive payloads already bound and validated by Handle, call the
// service layer, and translate domain errors into errs.HTTPError values.
package handler
