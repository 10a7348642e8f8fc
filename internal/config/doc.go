// Package config loads gmailreader settings from flags, the environment and
// an optional .env file.
//
// Precedence follows viper: explicit flags, then environment variables, then
// a config file (gmailreader.yaml in the working directory), then defaults.
package config
