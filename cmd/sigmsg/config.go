package main

import (
	"github.com/andre-c-andersen/sigmsg/internal/config"
)

// loadProfile resolves the link profile: the file at path when given,
// otherwise the built-in defaults. Both ends of a link must load the
// same profile; the timing constants are part of the protocol.
func loadProfile(path string) (config.Link, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
