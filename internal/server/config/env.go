package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays variables named EnvPrefix+<tag> found in environ onto
// config. Unset variables leave the current value alone.
func parseEnv(config *Config, environ []string) error {
	return env.ParseWithOptions(config, env.Options{
		Prefix:      EnvPrefix,
		Environment: env.ToMap(environ),
	})
}
