package main

import (
	"github.com/omegabuild/buildworker/pkg/broker"
)

const (
	// default to local redis no pass
	defaultRedisURL = "redis://localhost:6379/0"
)

type optsGeneral struct {
	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

type optsBroker struct {
	RedisURL string `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis connection string"`

	Queue string `long:"queue" env:"BUILD_QUEUE" default:"jobs:build" description:"Queue to pop build jobs from"`
}

func (o *optsBroker) connect() (broker.Broker, error) {
	if o.RedisURL == "" {
		o.RedisURL = defaultRedisURL
	}
	return broker.NewRedisBroker(&broker.Options{URL: o.RedisURL, Queue: o.Queue})
}
