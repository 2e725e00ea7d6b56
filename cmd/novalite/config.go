package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/novalite/internal/logger"
)

const (
	storeFile     = "file"
	storePostgres = "postgres"

	defaultAPIURL       = "http://localhost:8000/api"
	defaultStore        = storeFile
	defaultStrategy     = "reactive"
	defaultLoggingLevel = logger.LevelWarn
	defaultEnvironment  = logger.EnvDevelopment
)

type Config struct {
	// API origin with path prefix
	APIURL string `validate:"required,http_url"`

	// Where credentials are kept between runs
	Store string `validate:"oneof=file postgres"`

	// File store only. If empty than file in user config directory is used
	CredentialsPath string

	// Postgres store only
	DatabaseDSN string `validate:"required_if=Store postgres"`

	// Token refresh strategy (reactive, proactive)
	Strategy string `validate:"oneof=reactive proactive"`

	// Default logging level
	LogLevel string `validate:"oneof=debug info warn error"`

	// Environment
	Environment string `validate:"oneof=dev prod"`

	// Password for login, so it is not typed in scripts
	Password string
}

func NewConfig() *Config {
	return &Config{
		APIURL:      defaultAPIURL,
		Store:       defaultStore,
		Strategy:    defaultStrategy,
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"NOVALITE_API_URL":     setString(&c.APIURL),
		"NOVALITE_STORE":       setString(&c.Store),
		"NOVALITE_CREDENTIALS": setString(&c.CredentialsPath),
		"NOVALITE_STRATEGY":    setString(&c.Strategy),
		"NOVALITE_PASSWORD":    setString(&c.Password),
		"DATABASE_URI":         setString(&c.DatabaseDSN),
		"LOG_LEVEL":            setString(&c.LogLevel),
		"ENVIRONMENT":          setString(&c.Environment),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// Flags default to values already loaded, so flags win over environment
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "API origin including path prefix")
	fs.StringVar(&c.Store, "store", c.Store, "Credential store (file, postgres)")
	fs.StringVar(&c.CredentialsPath, "credentials", c.CredentialsPath, "Credentials file for file store")
	fs.StringVar(&c.DatabaseDSN, "database", c.DatabaseDSN, "Database connection string for postgres store")
	fs.StringVar(&c.Strategy, "strategy", c.Strategy, "Token refresh strategy (reactive, proactive)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
