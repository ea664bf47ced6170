// Package logger builds the process-wide *slog.Logger.
//
// Production and staging use JSON output at INFO, development uses text at
// DEBUG. Context extractors inject request-scoped values (request id, caller
// id) on every record without building a new logger per request.
//
//	log := logger.New(logger.WithEnvironment(cfg.Env, "accountbilling"))
//	logger.SetAsDefault(log)
//
//	log.WarnContext(ctx, "subscription update failed, keeping retrieved subscription",
//		logger.AccountID(accountID),
//		logger.Error(err),
//	)
//
// Attribute helpers keep key names consistent across packages.
package logger
