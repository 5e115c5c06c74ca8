package config

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppConfig is loaded from flags, the environment and an optional .env file.
// Nested keys map to env names with "." replaced by "_", e.g. lms.api_url is LMS_API_URL.
type AppConfig struct {
	AppID     string `mapstructure:"app_id" json:"app_id" validate:"required"`
	Port      int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	Env       string `mapstructure:"env" json:"env" validate:"oneof=development production"`
	JWTSecret string `mapstructure:"jwt_secret" json:"-"` // verify tokens when set
	LoginPath string `mapstructure:"login_path" json:"login_path" validate:"required"`
	// comma separated list of allowed browser origins
	CORSOrigins string `mapstructure:"cors_origins" json:"cors_origins"`

	UploadsURL         string        `mapstructure:"uploads_url" json:"uploads_url" validate:"required,url"`
	ProgressDebounce   time.Duration `mapstructure:"progress_debounce" json:"progress_debounce" validate:"min=1ms"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout" json:"session_idle_timeout" validate:"min=1s"`
	SessionSweepSpec   string        `mapstructure:"session_sweep_spec" json:"session_sweep_spec" validate:"required,cronspec"`

	LMS struct {
		APIURL     string        `mapstructure:"api_url" json:"api_url" validate:"required,url"`
		APITimeout time.Duration `mapstructure:"api_timeout" json:"api_timeout" validate:"min=1ms"`
	} `mapstructure:"lms" json:"lms"`

	Log struct {
		Level string `mapstructure:"level" json:"level" validate:"oneof=debug info warn error"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"log" json:"log"`

	// optional, snapshots are kept in memory only when host is empty
	DB struct {
		Host     string `mapstructure:"host" json:"host"`
		Port     int    `mapstructure:"port" json:"port"`
		User     string `mapstructure:"user" json:"user" validate:"required_with=Host"`
		Password string `mapstructure:"password" json:"-"`
		Name     string `mapstructure:"name" json:"name" validate:"required_with=Host"`
		SSLMode  string `mapstructure:"sslmode" json:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`
	} `mapstructure:"db" json:"db"`

	// optional, the activity journal is disabled when uri is empty
	Mongo struct {
		URI    string `mapstructure:"uri" json:"-"`
		DBName string `mapstructure:"db_name" json:"db_name" validate:"required_with=URI"`
	} `mapstructure:"mongo" json:"mongo"`
}

// Origins splits CORSOrigins.
func (c *AppConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// PostgresDSN returns the gorm postgres DSN, empty when no database is configured.
func (c *AppConfig) PostgresDSN() string {
	if c.DB.Host == "" {
		return ""
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		c.DB.Host, c.DB.User, c.DB.Password, c.DB.Name, c.DB.Port, c.DB.SSLMode)
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("onlearn-learner", pflag.ContinueOnError)

	fs.String("app_id", "onlearn-learner", "service identifier")
	fs.Int("port", 8080, "listening port")
	fs.String("env", "development", "runtime environment, 'development' or 'production'")
	fs.String("jwt_secret", "", "verify bearer tokens with this HMAC secret (decode only when empty)")
	fs.String("login_path", "/login", "where unauthenticated clients are sent")
	fs.String("cors_origins", "http://localhost:5173", "comma separated allowed origins")

	fs.String("uploads_url", "http://localhost:5254/uploads", "base URL of module files")
	fs.Duration("progress_debounce", time.Second, "quiet window of partial progress updates")
	fs.Duration("session_idle_timeout", 30*time.Minute, "close course views idle for this long")
	fs.String("session_sweep_spec", "@every 1m", "cron spec of the idle session sweep")

	fs.String("lms.api_url", "http://localhost:5254", "remote LMS API base URL")
	fs.Duration("lms.api_timeout", 10*time.Second, "timeout of one remote LMS call")

	fs.String("log.level", "info", "logging level")
	fs.String("log.file", "", "log to file")

	fs.String("db.host", "", "snapshot database host (optional)")
	fs.Int("db.port", 5432, "snapshot database port")
	fs.String("db.user", "", "snapshot database user")
	fs.String("db.password", "", "snapshot database password")
	fs.String("db.name", "", "snapshot database name")
	fs.String("db.sslmode", "disable", "snapshot database sslmode")

	fs.String("mongo.uri", "", "activity journal MongoDB URI (optional)")
	fs.String("mongo.db_name", "", "activity journal database name")
	return fs
}

// Load reads .env, then flags from args and the environment.
func Load(args []string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(AppConfig)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *AppConfig) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("mapstructure")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("cronspec", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})

	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	msg := make([]string, 0, len(verrs))
	for _, field := range verrs {
		namespace := field.Namespace()
		name := namespace[strings.IndexByte(namespace, '.')+1:]
		switch field.Tag() {
		case "required", "required_with":
			msg = append(msg, fmt.Sprintf("%s is required", name))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", name, field.Param()))
		case "url":
			msg = append(msg, fmt.Sprintf("%s must be a URL", name))
		case "cronspec":
			msg = append(msg, fmt.Sprintf("%s is not a valid cron spec", name))
		default:
			msg = append(msg, fmt.Sprintf("%s is invalid (%s=%s)", name, field.Tag(), field.Param()))
		}
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}
