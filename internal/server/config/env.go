package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/storefront/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv overlays values from the process environment onto config.
//
// A dotenv file is loaded first: the path given with -env, or ./.env when
// it exists. Variables already present in the environment are not
// overwritten by the file. Only variables that are set change the config;
// everything else keeps its current value.
//
// A missing file named explicitly with -env, a malformed file, or a value
// that cannot be parsed into its field causes a panic.
func parseEnv(config *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if err := env.Parse(config); err != nil {
		panic(err)
	}
}
