package core

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug           bool
		TestMode        bool
		Env             string // DEV (local; default), TEST, QA, PROD
		Build           string
		AppName         string
		SecretKey       string
		RollbarToken    string
		DemoUserID      string // only honored in debug mode
		TopCompetencies int
		WorkDir         string

		Server  ServerConfig
		Backend BackendConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
		MaxUploadSize   int64 // bytes

		SessionIdleTTL       time.Duration
		SessionSweepInterval time.Duration
	}

	// BackendConfig describes the Earn Your Wings REST backend.
	BackendConfig struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}
)

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, eg. `DEV_BACKEND_BASEURL`.
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Earn Your Wings")
	v.SetDefault("secretKey", "g7#kq2-wings)lq9$+1x=f&uoz8(n!p)#*d4(#vb3^$dehm5tz")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("demoUserID", "")
	v.SetDefault("topCompetencies", 3)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.maxUploadSize", int64(10<<20))
	v.SetDefault("server.sessionIdleTTL", 2*time.Hour)
	v.SetDefault("server.sessionSweepInterval", 10*time.Minute)
	v.SetDefault("backend.baseURL", "http://localhost:5000")
	v.SetDefault("backend.apiKey", "")
	v.SetDefault("backend.timeout", 15*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := os.Getenv("WINGS_WORKDIR")
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		DemoUserID:      v.GetString("demoUserID"),
		TopCompetencies: v.GetInt("topCompetencies"),
		WorkDir:         wd,
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			MaxUploadSize:   v.GetInt64("server.maxUploadSize"),

			SessionIdleTTL:       v.GetDuration("server.sessionIdleTTL"),
			SessionSweepInterval: v.GetDuration("server.sessionSweepInterval"),
		},
		Backend: BackendConfig{
			BaseURL: strings.TrimRight(v.GetString("backend.baseURL"), "/"),
			APIKey:  v.GetString("backend.apiKey"),
			Timeout: v.GetDuration("backend.timeout"),
		},
	}
	if conf.TopCompetencies <= 0 {
		conf.TopCompetencies = 3
	}
	return conf, nil
}
