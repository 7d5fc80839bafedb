// Package logger builds the service's *slog.Logger.
//
// New picks a text or JSON handler and wraps it so attributes carried in the
// request context (request id, account id) are added to every record:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "devicecap"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
// WithEnvironment selects JSON at INFO for production and staging and text at
// DEBUG for anything else. Attribute helpers in attr.go keep key names consistent.
package logger
