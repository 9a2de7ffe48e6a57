// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// BusinessLocation loads the timezone meeting slots are expressed in.
func BusinessLocation(name string) (*time.Location, error) {
	if name == "" {
		name = "America/Sao_Paulo"
	}
	return time.LoadLocation(name)
}
