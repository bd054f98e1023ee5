package config

// Backend is the platform-native store for configuration values.
// macOS keeps them in UserDefaults; everywhere else a JSON file in
// the XDG config directory is used. Get reports ok=false for an
// unset key.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
