// Package migrations embebe los archivos de migración SQL por dialecto.
package migrations

import "embed"

// FS contiene las migraciones de postgres/ y sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Dir retorna el directorio de migraciones del driver dentro de FS.
func Dir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
