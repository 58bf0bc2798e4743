//go:build !unix

package system

import "github.com/rs/zerolog"

func InitResourceLimits(log zerolog.Logger) {}
