// Package api is the HTTP surface of the tasks service. It declares the
// route table, runs each route as an ordered pipeline of named steps
// (authenticate, validate, handle) and converts every failure into the error
// envelope at a single boundary.
package api
