// Package binder populates request structs from JSON bodies and router path
// parameters.
package binder
