// Package config loads harvester settings from a YAML file and the environment.
//
// Defaults come first, then the optional file, then environment variables
// such as MONGODB_CONNECTION_STRING and OPENAI_API_KEY. A .env file can be
// loaded into the environment beforehand with LoadDotEnv.
package config
