// Package config reads the service configuration from environment variables.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

const (
	StoreMySQL = "mysql"
	StoreMongo = "mongo"
)

type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	Store  string `env:"STORE" envDefault:"mysql"`
	MySQL  MySQL
	Mongo  Mongo  `envPrefix:"MONGO_"`
	Auth   Auth   `envPrefix:"JWT_"`
	Logger Logger `envPrefix:"LOG_"`
	HTTP   HTTP
}

// MySQL keeps the variable names of earlier releases (DBHOST, DBUSER, DBPWD).
type MySQL struct {
	Host     string `env:"DBHOST" envDefault:"localhost:3306"`
	User     string `env:"DBUSER"`
	Password string `env:"DBPWD"`
	Name     string `env:"DBNAME" envDefault:"test"`
}

type Mongo struct {
	URI      string `env:"URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE" envDefault:"contactkeeper"`
}

type Auth struct {
	Secret string        `env:"SECRET,required,notEmpty"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

type Logger struct {
	Mode string `env:"MODE" envDefault:"dev"`
}

type HTTP struct {
	// Logging turns the request log off when set to "off".
	Logging     string   `env:"GIN_LOGGING"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	conf, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if conf.Store != StoreMySQL && conf.Store != StoreMongo {
		return nil, errors.Errorf("unknown STORE %q, expected %q or %q", conf.Store, StoreMySQL, StoreMongo)
	}
	return &conf, nil
}

// ParseMySQL reads only the database settings, for tools that do not serve HTTP.
func ParseMySQL() (*MySQL, error) {
	conf, err := env.ParseAs[MySQL]()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &conf, nil
}
