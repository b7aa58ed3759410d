package config

import (
	"log"
	"strings"
)

func MustNonEmpty(value, envName string) {
	if strings.TrimSpace(value) == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
