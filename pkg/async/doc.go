// Package async runs independent reads concurrently and joins their results.
//
//	planF := async.Go(ctx, func(ctx context.Context) (billing.Plan, error) { return plans.Get(ctx, id) })
//	userF := async.Go(ctx, func(ctx context.Context) (account.User, error) { return users.Get(ctx, uid) })
//	plan, err := planF.Await(ctx)
package async
