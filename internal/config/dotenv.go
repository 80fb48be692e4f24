package config

import "github.com/joho/godotenv"

// LoadDotEnv reads the given .env files into the environment.
// Variables already set are left untouched. A missing file is an error
// the caller may ignore.
func LoadDotEnv(paths ...string) error {
	return godotenv.Load(paths...)
}
