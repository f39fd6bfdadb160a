package pkgconfig

// Config abstracts read access to application configuration values.
//
// Implementations may be backed by a file, environment variables, or a
// remote source; business code should only depend on this interface.
type Config interface {
	GetInt(key string) int64
	GetBool(key string) bool
	GetFloat(key string) float64
	GetString(key string) string
	GetBinary(key string) []byte
	GetArray(key string) []string
	GetMap(key string) map[string]string
	Close() error
}
