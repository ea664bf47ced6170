// Package account holds the tenant aggregate and its membership rules.
//
// An Account's access and admins lists are only changed through Store.Update,
// which serializes read-modify-write per account (compare-and-swap on a
// version field in MongoDB, a per-account mutex in memory). The counters
// accessCount and adminCount are recomputed from the lists on every write.
//
// The package also defines the error taxonomy shared by the billing,
// invite and reconcile services.
package account
