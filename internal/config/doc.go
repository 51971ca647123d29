// Package config loads and watches the predictor configuration file.
//
// Top-level types:
//   - Config{Server, Sources, Feed, Providers, Predictor, Schedule, Storage,
//     Alerts, Log}, the full tree parsed from YAML
//   - Source: id, type (tracksino|ltccasino|html), endpoint, timeout, user_agent
//   - ProviderConfig: key_env, endpoint, model, max_tokens, temperature,
//     timeout; Key() resolves the API key from the environment
//   - StorageConfig, CacheConfig, AuthConfig, WebhookConfig: secrets are
//     never stored inline, only the name of the variable holding them
//
// Load(path) loads a sibling .env file with godotenv, reads the YAML file,
// applies defaults (port 3000, the two public history sources with a 7s
// timeout, 60s auto-predict), applies the PORT override, then validates
// enums and fills per-entry defaults.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
