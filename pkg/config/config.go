// Package config loads the application settings from the environment and
// command line flags.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Keys understood by Load. Each one is bound to the environment variable of the
// same name in upper case with '-' replaced by '_', and VWO_ prefixed unless
// listed in unprefixedKeys.
const (
	AccountIDKey       = "account-id"
	SDKKeyKey          = "sdk-key"
	FlagKeyKey         = "flag-key"
	EventNameKey       = "event-name"
	CustomVariablesKey = "custom-variables"
	UserAttributesKey  = "user-attributes"
	LogLevelKey        = "log-level"
	VariableKey1Key    = "variable-key-1"
	VariableKey2Key    = "variable-key-2"
	SettingsSourceKey  = "settings-source"
	PollIntervalKey    = "settings-poll-interval"
	PortKey            = "port"
	CORSOriginsKey     = "cors-origins"
)

const envPrefix = "VWO"

var unprefixedKeys = map[string]bool{
	PortKey:        true,
	CORSOriginsKey: true,
}

var defaults = map[string]interface{}{
	LogLevelKey:       "debug",
	VariableKey1Key:   "model_name",
	VariableKey2Key:   "query_answer",
	SettingsSourceKey: "settings.json",
	PollIntervalKey:   "30s",
	PortKey:           8080,
}

type Config struct {
	AccountID       int
	SDKKey          string
	FlagKey         string
	EventName       string
	CustomVariables map[string]any
	UserAttributes  map[string]any
	LogLevel        string
	VariableKey1    string
	VariableKey2    string

	SettingsSource string
	PollInterval   string
	Port           int32
	CORSOrigins    []string
}

// EnvName returns the environment variable key is read from.
func EnvName(key string) string {
	name := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if unprefixedKeys[key] {
		return name
	}
	return envPrefix + "_" + name
}

// Bind registers defaults and environment bindings for every key on v.
func Bind(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for _, key := range []string{
		AccountIDKey, SDKKeyKey, FlagKeyKey, EventNameKey, CustomVariablesKey,
		UserAttributesKey, LogLevelKey, VariableKey1Key, VariableKey2Key,
		SettingsSourceKey, PollIntervalKey, PortKey, CORSOriginsKey,
	} {
		// BindEnv only fails when called without a key
		_ = v.BindEnv(key, EnvName(key))
	}
}

// Load reads the configuration from v. It never fails: malformed values fall
// back to their defaults and missing required values are reported by Validate.
func Load(v *viper.Viper) *Config {
	Bind(v)

	cfg := &Config{
		AccountID:       parseAccountID(v.GetString(AccountIDKey)),
		SDKKey:          strings.TrimSpace(v.GetString(SDKKeyKey)),
		FlagKey:         strings.TrimSpace(v.GetString(FlagKeyKey)),
		EventName:       strings.TrimSpace(v.GetString(EventNameKey)),
		CustomVariables: safeJSONMap(CustomVariablesKey, v.GetString(CustomVariablesKey)),
		UserAttributes:  safeJSONMap(UserAttributesKey, v.GetString(UserAttributesKey)),
		LogLevel:        v.GetString(LogLevelKey),
		VariableKey1:    v.GetString(VariableKey1Key),
		VariableKey2:    v.GetString(VariableKey2Key),
		SettingsSource:  v.GetString(SettingsSourceKey),
		PollInterval:    v.GetString(PollIntervalKey),
		Port:            v.GetInt32(PortKey),
		CORSOrigins:     splitList(v.GetString(CORSOriginsKey)),
	}
	return cfg
}

// Validate reports the required settings that are missing.
func (c *Config) Validate() (bool, []string) {
	errs := []string{}
	if c.AccountID <= 0 {
		errs = append(errs, missing(AccountIDKey))
	}
	if c.SDKKey == "" {
		errs = append(errs, missing(SDKKeyKey))
	}
	if c.FlagKey == "" {
		errs = append(errs, missing(FlagKeyKey))
	}
	return len(errs) == 0, errs
}

// Level parses LogLevel, falling back to debug.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("unknown log level %q, using debug", c.LogLevel)
		return log.DebugLevel
	}
	return level
}

func missing(key string) string {
	return fmt.Sprintf("Missing required configuration: %s", EnvName(key))
}

func parseAccountID(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("account id %q is not a number", raw)
		return 0
	}
	return id
}

func safeJSONMap(key, raw string) map[string]any {
	out := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		log.Warnf("failed to parse JSON from %s: %s, using an empty map", EnvName(key), raw)
		return map[string]any{}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
