// Package logger expone un logger zap singleton con scoping por contexto.
//
// Se inicializa una vez desde cmd y el resto del código lo obtiene del
// contexto del request, que el middleware de logging enriquece con
// request_id, method y path:
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
//	log := logger.From(ctx)
//	log.Info("record created", logger.Collection(slug), logger.RecordID(id))
//
// Sin logger en el contexto, From cae al singleton.
package logger
