package config

import (
	"os"
	"strings"
)

func IsDebug() bool {
	v := os.Getenv("TUSK_DEBUG")
	return v == "1" || strings.EqualFold(v, "true")
}
