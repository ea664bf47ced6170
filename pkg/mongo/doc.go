// Package mongo connects to the MongoDB deployment that stores accounts,
// plans, tax rates, invites, invoices, users and queued tasks.
//
// Every write in this module is a field merge ($set), never a document
// replacement, so fields owned by other writers survive.
package mongo
