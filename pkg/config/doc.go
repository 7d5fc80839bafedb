// Package config loads typed configuration structs from environment variables.
//
// Structs use caarlos0/env tags; each type is parsed once per process and
// cached, so packages can call Load for their own struct without coordinating:
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// A .env file in the working directory is read before the first parse. Use
// LoadEnvFiles to read other files first, e.g. from a --env-file flag.
// Variables already present in the environment always win.
package config
