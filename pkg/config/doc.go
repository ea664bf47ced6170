// Package config loads process configuration from environment variables.
//
// Every service package in this module owns a small Config struct annotated with
// `env` tags (see github.com/caarlos0/env). The first call to Load reads an
// optional `.env` file from the working directory through
// github.com/joho/godotenv, then parses the environment into the struct.
// Parsed values are cached per type, so the billing, invite and queue packages
// can all call Load for their own struct without re-reading the environment.
//
// # Usage
//
//	type StripeConfig struct {
//		SecretKey     string `env:"STRIPE_SECRET_KEY,required"`
//		WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
//	}
//
//	var cfg StripeConfig
//	config.MustLoad(&cfg)
//
// Use Reset in tests that need to re-parse a type after changing the environment.
package config
