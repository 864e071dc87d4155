// Package api contains the HTTP handlers of the user management API:
// registration and login, user listing and owner-only account changes,
// health and a development echo endpoint.
//
// Handlers return their failures instead of rendering them. Handle adapts
// them to http.HandlerFunc and passes any error to the middleware pipeline,
// which classifies it into a status code.
package api
