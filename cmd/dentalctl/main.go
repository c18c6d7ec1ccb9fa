package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd(openEnv).Execute(); err != nil {
		log.Error().Err(err).Msg("dentalctl failed")
		os.Exit(1)
	}
}
