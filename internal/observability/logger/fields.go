package logger

import (
	"time"

	"go.uber.org/zap"
)

// ─── HTTP ───

func RequestID(v string) zap.Field       { return zap.String("request_id", v) }
func Method(v string) zap.Field          { return zap.String("method", v) }
func Path(v string) zap.Field            { return zap.String("path", v) }
func Status(v int) zap.Field             { return zap.Int("status", v) }
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func Bytes(v int) zap.Field              { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field        { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field       { return zap.String("user_agent", v) }

// ─── Record engine ───

// Collection slug de la colección.
func Collection(v string) zap.Field { return zap.String("collection", v) }

// RecordID id del record.
func RecordID(v string) zap.Field { return zap.String("record_id", v) }

// Hook nombre del hook (beforeUpdate, afterCreate, ...).
func Hook(v string) zap.Field { return zap.String("hook", v) }

// Verb verbo de acceso (create, read, update, delete).
func Verb(v string) zap.Field { return zap.String("verb", v) }

// Versions versión almacenada y versión declarada, en una migración.
func Versions(from, to int) zap.Field {
	return zap.Dict("version", zap.Int("from", from), zap.Int("to", to))
}

// Adapter nombre del adapter de almacenamiento.
func Adapter(v string) zap.Field { return zap.String("adapter", v) }

// ─── Auth ───

func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func SessionID(v string) zap.Field { return zap.String("session_id", v) }

// Email usar con cuidado en prod.
func Email(v string) zap.Field { return zap.String("email", v) }

// ─── Sistema ───

func Component(v string) zap.Field  { return zap.String("component", v) }
func Op(v string) zap.Field         { return zap.String("op", v) }
func Err(err error) zap.Field       { return zap.Error(err) }
func Count(v int) zap.Field         { return zap.Int("count", v) }
func String(k, v string) zap.Field  { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Any(k string, v any) zap.Field { return zap.Any(k, v) }
