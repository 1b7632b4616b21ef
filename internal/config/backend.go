package config

// ConfigBackend is the platform store behind config set. Values are kept as
// strings; keySpec.parse gives them their type.
type ConfigBackend interface {
	Get(key string) (val string, ok bool, err error)
	Set(key, val string) error
}
