// Package collection define la configuración de colecciones y el registry
// inmutable que las expone a los requests.
//
// El registry se construye una sola vez al arrancar el proceso (desde un
// archivo YAML/JSONC más hooks registrados en código) y después es de solo
// lectura: es seguro para lecturas concurrentes sin locks.
package collection
